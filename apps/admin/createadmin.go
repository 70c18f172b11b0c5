package main

import (
	"context"
	"fmt"

	"github.com/trezcool/elimu/core/user"
)

// createAdmin creates a user.User owning every admin right.
func (cli *commandLine) createAdmin(name, uname, email, pwd string) error {
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{user.RoleAdminOwner},
	}
	if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return cli.validationError(err)
	}

	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "admin %q created (id: %s)\n", usr.Name, usr.ID)
	return nil
}
