package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/api/echo"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/shared"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	cachesvc "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/services/cache"
	emailsvc "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/services/email"
	logsvc "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/services/logger"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	servicesParam struct {
		dig.In
		DB         core.DB
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Cache      branch.Cache
		Mailer     core.EmailService
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

// newBranchCache returns a nil cache when Redis is not configured.
func newBranchCache(conf *core.Config, logger core.Logger) branch.Cache {
	client := cachesvc.NewRedisClient(conf)
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn(fmt.Sprintf("redis unavailable, branch cache disabled: %v", err), err)
		return nil
	}
	return cachesvc.NewBranchCache(client, conf.Redis.TTL)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate
}

func newServices(p servicesParam) (*shared.Services, error) {
	return shared.NewServices(shared.Options{
		DB:         p.DB,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Cache:      p.Cache,
		Mailer:     p.Mailer,
	})
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	svcs *shared.Services,
) *echoapi.Server {
	return echoapi.NewServer(conf.Server.Address, nil, echoapi.NewDeps(conf, logger, validate, translator, svcs))
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newBranchCache))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newServices))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
