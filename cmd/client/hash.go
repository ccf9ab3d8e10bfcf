package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/security"
)

// hashCmd prints the digest stored for a password, for seeding tables by hand.
var hashCmd = &cobra.Command{
	Use:   "hash [password]",
	Short: "Print the argon2 digest of a password",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			var err error
			if password, err = readPassword(cmd); err != nil {
				return err
			}
		}

		var e models.Employee
		if err := e.SetPassword(password, security.NewArgon2Hasher()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), e.Password)
		return nil
	},
}
