package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/edecs/elearn/core/account"
	"github.com/edecs/elearn/core/course"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	accountSvc *account.Service
	courseRepo *course.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -email EMAIL [-admin]          - provision an account; the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL             - send a password reset email")
	fmt.Println("  grant -email EMAIL -course ID [-revoke] - toggle a course grant")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserEmail := addUserCmd.String("email", "", "The account's email address. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Provision an admin account.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email address.")

	grantCmd := flag.NewFlagSet("grant", flag.ExitOnError)
	grantEmail := grantCmd.String("email", "", "The account's email address.")
	grantCourse := grantCmd.String("course", "", "The course ID to grant or revoke.")
	grantRevoke := grantCmd.Bool("revoke", false, "Revoke the grant instead of adding it.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, string(pwd), *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail)
	case "grant":
		if err := grantCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantEmail == "" || *grantCourse == "" {
			grantCmd.Usage()
			return errHelp
		}
		return cli.setGrant(*grantEmail, *grantCourse, !*grantRevoke)
	default:
		cli.printUsage()
		return errHelp
	}
}
