package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/moodlegw/core/user"
)

func newAddUserCmd(app *app) *cobra.Command {
	var nu user.NewUser
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Register a Moodle user (no-op if the username exists); the password is prompted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			nu.Password = pwd

			res, err := app.users.Register(cmd.Context(), nu)
			if err != nil {
				return err
			}
			if res.Created {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created user %d\n", res.ID)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %q already exists (id %d)\n", res.User.Username, res.User.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nu.Username, "username", "", "username (lowercased)")
	cmd.Flags().StringVar(&nu.Firstname, "firstname", "", "first name")
	cmd.Flags().StringVar(&nu.Lastname, "lastname", "", "last name")
	cmd.Flags().StringVar(&nu.Email, "email", "", "email address")
	for _, name := range []string{"username", "firstname", "lastname", "email"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
