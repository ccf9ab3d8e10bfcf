package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/atinyakov/GophLibrary/internal/client/settings"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
}

var (
	initEndpoint string
	initAPIKey   string
	initSalt     string
	initCACert   string
	initTimeout  time.Duration
	initRefresh  time.Duration
	initLogLevel string
	initForce    bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("locate config dir: %w", err)
			}
			path = filepath.Join(dir, "gophlib", "gophlib.yaml")
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		s := &settings.Settings{
			Endpoint:        initEndpoint,
			APIKey:          initAPIKey,
			Salt:            initSalt,
			CACert:          initCACert,
			Timeout:         initTimeout,
			RefreshInterval: initRefresh,
			LogLevel:        initLogLevel,
		}
		if err := settings.Write(path, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)
		return nil
	},
}

func init() {
	f := configInitCmd.Flags()
	f.StringVar(&initEndpoint, "endpoint", "", "table API base URL, e.g. https://library.example.com/rest/v1")
	f.StringVar(&initAPIKey, "api-key", "", "API key of the table server")
	f.StringVar(&initSalt, "salt", "", "table name salt")
	f.StringVar(&initCACert, "ca-cert", "", "PEM file of a CA trusted for the endpoint")
	f.DurationVar(&initTimeout, "timeout", 10*time.Second, "per-call timeout")
	f.DurationVar(&initRefresh, "refresh-interval", 0, "periodic full refresh, 0 disables")
	f.StringVar(&initLogLevel, "log-level", "warn", "log level")
	f.BoolVar(&initForce, "force", false, "overwrite an existing file")
	_ = configInitCmd.MarkFlagRequired("endpoint")
	_ = configInitCmd.MarkFlagRequired("api-key")
	_ = configInitCmd.MarkFlagRequired("salt")

	configCmd.AddCommand(configInitCmd)
}
