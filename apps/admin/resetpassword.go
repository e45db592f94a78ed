package main

import (
	"context"
	"time"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
