package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
)

// createSuperuser creates a superadmin, or promotes & reactivates the existing user with that username.
func (cli *commandLine) createSuperuser(name, uname, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC().Truncate(time.Millisecond)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname})
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if err := cli.usrRepo.CheckUniqueness(ctx, uname, email); err != nil {
			return err
		}
		usr = user.User{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}

	usr.Name = name
	usr.Role = tenancy.RoleSuperAdmin
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
