package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/shared"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	logsvc "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/services/logger"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database"
	sqlxrepos "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	defer appLogger.Close()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	//goland:noinspection GoUnhandledErrorResult
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errAndDie(database.Ping(ctx, db))

	// set up services
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	svcs, err := shared.NewServices(shared.Options{
		DB:         db,
		Logger:     appLogger,
		Validate:   validate,
		Translator: translator,
	})
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		svcs:    svcs,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		appLogger.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
