package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/admin"
)

// createAdmin creates an admin account, or resets the password of an
// existing one with the same email.
func (cli *commandLine) createAdmin(name, email, pwd string) error {
	ctx := context.Background()

	if _, err := cli.admSvc.GetByEmail(ctx, email); err != nil {
		if errors.Cause(err) != admin.ErrNotFound {
			return err
		}
		_, err = cli.admSvc.Create(ctx, name, email, pwd)
		return err
	}
	_, err := cli.admSvc.ResetPassword(ctx, email, pwd)
	return err
}
