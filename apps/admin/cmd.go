package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/shared"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")

	// cliActor is who the CLI acts as on tenant collections.
	cliActor = tenancy.Actor{UserID: "admin-cli", Role: tenancy.RoleSuperAdmin}
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
	svcs    *shared.Services
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createsuperuser -name NAME -username USERNAME [-email EMAIL] - create or promote a superadmin; the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run goose migration commands (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  importstudents -file PATH -branch BRANCH_ID - import students from an .xlsx workbook")
	fmt.Fprintln(cli.out, "  orphans - list documents attached to no existing branch")
}

// promptPassword returns errHelp when nothing was typed.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSuperuserCmd := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	createSuperuserName := createSuperuserCmd.String("name", "", "The user's full name.")
	createSuperuserUname := createSuperuserCmd.String("username", "", "The user's username. The password will be prompted next.")
	createSuperuserEmail := createSuperuserCmd.String("email", "", "The user's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "Path of the .xlsx workbook.")
	importBranch := importCmd.String("branch", "", "ID of the branch the students join.")

	for _, fs := range []*flag.FlagSet{createSuperuserCmd, resetPasswordCmd, importCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "createsuperuser":
		if err := createSuperuserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *createSuperuserName == "" || *createSuperuserUname == "" {
			createSuperuserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(createSuperuserCmd)
		if err != nil {
			return err
		}
		return cli.createSuperuser(*createSuperuserName, *createSuperuserUname, *createSuperuserEmail, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importFile == "" || *importBranch == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile, *importBranch)
	case "orphans":
		return cli.orphans()
	default:
		cli.printUsage()
		return errHelp
	}
}
