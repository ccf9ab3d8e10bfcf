// Package main provides gophlib, the library desk client.
package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/certgen"
	"github.com/atinyakov/GophLibrary/internal/client/remote"
	"github.com/atinyakov/GophLibrary/internal/client/settings"
	"github.com/atinyakov/GophLibrary/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// Global flag values.
var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gophlib",
	Short: "gophlib is the library desk client",
	Long: `gophlib keeps a local copy of the employee and media tables of the
library's table server, lets staff sign in, search and check out media,
and lets managers and admins edit the catalog.`,
	SilenceUsage: true,
	RunE:         runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "settings file (default: ./resources/gophlib.yaml, ./gophlib.yaml or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level, overrides the settings file")

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadRuntime reads the settings and builds the logger and remote store
// every networked subcommand needs.
func loadRuntime() (*settings.Settings, *zap.Logger, *remote.RESTStore, error) {
	s, err := settings.Load(flagConfig)
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.New()
	if err := log.InitDevelopment(cmpOr(flagLogLevel, s.LogLevel)); err != nil {
		return nil, nil, nil, err
	}

	var httpClient *http.Client
	if s.CACert != "" {
		pool, err := certgen.LoadCertPool(s.CACert)
		if err != nil {
			return nil, nil, nil, err
		}
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		}}
	}

	store, err := remote.NewRESTStore(remote.Options{
		HTTPClient: httpClient,
		Endpoint:   s.Endpoint,
		APIKey:     s.APIKey,
		Salt:       s.Salt,
		Timeout:    s.Timeout,
		Logger:     log.Log,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return s, log.Log, store, nil
}
