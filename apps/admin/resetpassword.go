package main

import "context"

// resetPassword triggers the provider's password reset email.
func (cli *commandLine) resetPassword(email string) error {
	return cli.accountSvc.RequestPasswordReset(context.Background(), email)
}
