package main

import (
	"context"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/user"
)

// addUser creates a user of any role, admins included.
func (cli *commandLine) addUser(uname, email string, role core.Role, pwd string) error {
	_, err := cli.usrSvc.Provision(context.Background(), user.NewUser{
		Username: uname,
		Email:    email,
		Password: pwd,
		Role:     role,
	})
	return err
}
