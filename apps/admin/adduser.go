package main

import (
	"context"
	"time"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/user"
)

// addUser creates a user, or promotes and reactivates an existing one.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	role := user.RoleStudent
	if isAdmin {
		role = user.RoleAdmin
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
