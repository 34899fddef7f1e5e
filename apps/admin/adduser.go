package main

import (
	"context"

	"github.com/edecs/elearn/core/account"
)

// addUser provisions a fresh account.
func (cli *commandLine) addUser(email, pwd string, isAdmin bool) error {
	return cli.accountSvc.CreateAccount(context.Background(), account.NewAccount{
		Email:    email,
		Password: pwd,
		Admin:    isAdmin,
	})
}
