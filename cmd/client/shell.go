package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/client/auth"
	"github.com/atinyakov/GophLibrary/internal/client/commands"
	"github.com/atinyakov/GophLibrary/internal/client/engine"
	"github.com/atinyakov/GophLibrary/internal/client/shell"
	"github.com/atinyakov/GophLibrary/internal/security"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive desk shell (default)",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

// runShell loads every table and serves the shell. Failing to load the
// tables at startup is fatal.
func runShell(cmd *cobra.Command, args []string) error {
	s, log, store, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("reach %s: %w", store.Endpoint(), err)
	}

	eng := engine.New(store, log)
	if err := eng.RefreshAll(ctx); err != nil {
		log.Error("initial load failed", zap.String("endpoint", s.Endpoint), zap.Error(err))
		return fmt.Errorf("load tables from %s: %w", s.Endpoint, err)
	}
	eng.StartAutoRefresh(ctx, s.RefreshInterval)

	hasher := security.NewArgon2Hasher()
	gate := auth.NewGate(eng, hasher, nil)
	surface := commands.New(eng, gate, hasher, log)

	fmt.Fprintln(cmd.OutOrStdout(), "Type 'help' for a list of commands.")
	return shell.New(surface, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}
