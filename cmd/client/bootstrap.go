package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/security"
)

var (
	bootstrapID   uint16
	bootstrapName string
)

// bootstrapCmd creates the first admin, who can then add everyone else
// from the shell.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create an admin employee directly in the remote table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, store, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		admin, err := models.NewEmployee(models.EmployeeSpec{
			ID:        models.ID(bootstrapID),
			Name:      bootstrapName,
			PermLevel: models.PermAdmin,
			Password:  password,
		}, security.NewArgon2Hasher())
		if err != nil {
			return err
		}
		if err := store.Insert(cmd.Context(), admin); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin %d created\n", admin.ID)
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().Uint16Var(&bootstrapID, "id", 1, "employee id")
	bootstrapCmd.Flags().StringVar(&bootstrapName, "name", "Administrator", "employee name")
}
