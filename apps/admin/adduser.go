package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var staffRoles = map[string]string{
	"owner":   user.RoleAdminOwner,
	"admin":   user.RoleAdmin,
	"teacher": user.RoleTeacher,
}

// addUser updates or creates an active staff user.User
func (cli *commandLine) addUser(name, uname, email, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	roleValue, ok := staffRoles[core.CleanString(role, true /* lower */)]
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	exists := err == nil
	if err != nil && !core.IsNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{Username: uname, Email: email, CreatedAt: now}
	}
	if name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = lookup
	}
	if !core.StringInSlice(roleValue, usr.Roles) {
		usr.Roles = append(usr.Roles, roleValue)
	}
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
