package main

import (
	"context"
	"fmt"

	"github.com/trezcool/mradi/core/user"
)

// addUser creates a faculty or admin User. Students register through the API.
func (cli *commandLine) addUser(email, name, role, university, pwd string) error {
	if role != user.RoleFaculty && role != user.RoleAdmin {
		return fmt.Errorf("invalid role %q: must be %s or %s", role, user.RoleFaculty, user.RoleAdmin)
	}
	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            role,
		Name:            name,
		University:      university,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created %s %s (%s)\n", usr.Role, usr.Email, usr.ID)
	return nil
}
