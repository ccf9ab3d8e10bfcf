package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/atinyakov/GophLibrary/internal/client/shell"
)

// readPassword reads a password without echo when stdin is a terminal,
// and as a plain line otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	password, ok := shell.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Line("Password: ")
	if !ok {
		return "", errors.New("no password given")
	}
	return password, nil
}
