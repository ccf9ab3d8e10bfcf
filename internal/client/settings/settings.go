// Package settings loads the client's remote store settings.
//
// The settings file is YAML:
//
//	db:
//	  endpoint: https://library.example.com/rest/v1
//	  api_key: <key>
//	  salt: prod_
//	  ca_cert: certs/ca.crt
//	client:
//	  timeout: 10s
//	  refresh_interval: 5m
//	log:
//	  level: warn
//
// Every key can be overridden from the environment with the GOPHLIB_
// prefix, e.g. GOPHLIB_DB_ENDPOINT.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrMissingSetting is returned when one of the required settings is absent.
var ErrMissingSetting = errors.New("setting not found")

const (
	keyEndpoint        = "db.endpoint"
	keyAPIKey          = "db.api_key"
	keySalt            = "db.salt"
	keyCACert          = "db.ca_cert"
	keyTimeout         = "client.timeout"
	keyRefreshInterval = "client.refresh_interval"
	keyLogLevel        = "log.level"
)

// Settings holds what the client needs to reach the remote store.
type Settings struct {
	// Endpoint is the base URL of the table API.
	Endpoint string
	// APIKey is sent with every request.
	APIKey string
	// Salt prefixes every table name.
	Salt string
	// CACert optionally names a PEM file of extra roots trusted for the
	// endpoint, e.g. the CA of a self-signed table server.
	CACert string
	// Timeout bounds each remote call.
	Timeout time.Duration
	// RefreshInterval enables periodic full refreshes when positive.
	RefreshInterval time.Duration
	// LogLevel is the zap level name.
	LogLevel string
}

// Load reads settings from path, or from the default locations when path
// is empty (./resources/gophlib.yaml, ./gophlib.yaml, the user config dir).
// When no file is found in the default locations the environment must
// supply every required setting.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault(keyTimeout, "10s")
	v.SetDefault(keyRefreshInterval, "0s")
	v.SetDefault(keyLogLevel, "warn")

	v.SetConfigName("gophlib")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}
	v.AddConfigPath("./resources")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "gophlib"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	v.SetEnvPrefix("gophlib")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Settings{
		Endpoint:        strings.TrimRight(v.GetString(keyEndpoint), "/"),
		APIKey:          v.GetString(keyAPIKey),
		Salt:            v.GetString(keySalt),
		CACert:          v.GetString(keyCACert),
		Timeout:         v.GetDuration(keyTimeout),
		RefreshInterval: v.GetDuration(keyRefreshInterval),
		LogLevel:        v.GetString(keyLogLevel),
	}

	required := []struct{ key, val string }{
		{keyEndpoint, s.Endpoint},
		{keyAPIKey, s.APIKey},
		{keySalt, s.Salt},
	}
	for _, r := range required {
		if r.val == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSetting, r.key)
		}
	}
	return s, nil
}

type fileLayout struct {
	DB struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
		Salt     string `yaml:"salt"`
		CACert   string `yaml:"ca_cert,omitempty"`
	} `yaml:"db"`
	Client struct {
		Timeout         string `yaml:"timeout"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"client"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Write stores s as YAML at path, creating parent directories. The file
// holds the API key, so it is written with 0600.
func Write(path string, s *Settings) error {
	var f fileLayout
	f.DB.Endpoint = s.Endpoint
	f.DB.APIKey = s.APIKey
	f.DB.Salt = s.Salt
	f.DB.CACert = s.CACert
	f.Client.Timeout = s.Timeout.String()
	f.Client.RefreshInterval = s.RefreshInterval.String()
	f.Log.Level = s.LogLevel

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
