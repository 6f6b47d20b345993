// Package config loads segmaster settings from config files, .env files and
// SEGMASTER_ prefixed environment variables.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/segmaster/pkg/constants"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/segments"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SEGMASTER"

// tokenEnvPrefix marks per-driver token variables, e.g. SEGMASTER_TOKEN_PG.
const tokenEnvPrefix = EnvPrefix + "_TOKEN_"

// Config holds the settings of one reconciliation run.
type Config struct {
	// Config file used, if any
	ConfigFile string

	// Target
	Organization string
	Domain       string
	DataProduct  string
	Environment  string

	// Project authorization tokens keyed by driver
	Tokens         map[string]string
	TokensSecretID string
	AWSRegion      string

	// Platform endpoints
	PlatformURL      string
	PlatformToken    string
	DevelopmentURL   string
	DevelopmentToken string

	// Version stores
	WarehouseDSN string
	ReleaseTable string
	ManifestRoot string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Load reads configuration in order of precedence:
// 1. Environment variables (SEGMASTER_*)
// 2. .env and .env.local files
// 3. Config file (configFile, or .segmaster.yaml in the working or home directory)
// 4. Defaults
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
	} else {
		v.SetConfigName(".segmaster")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "reading config file", err)
			}
		}
	}

	cfg := &Config{
		ConfigFile:       v.ConfigFileUsed(),
		Organization:     v.GetString("organization"),
		Domain:           v.GetString("domain"),
		DataProduct:      v.GetString("data_product"),
		Environment:      v.GetString("project_environment"),
		Tokens:           loadTokens(v),
		TokensSecretID:   v.GetString("tokens_secret_id"),
		AWSRegion:        v.GetString("aws.region"),
		PlatformURL:      v.GetString("platform.url"),
		PlatformToken:    v.GetString("platform.token"),
		DevelopmentURL:   v.GetString("development.url"),
		DevelopmentToken: v.GetString("development.token"),
		WarehouseDSN:     v.GetString("warehouse.dsn"),
		ReleaseTable:     v.GetString("release_table_name"),
		ManifestRoot:     v.GetString("manifest.root"),
		LogLevel:         v.GetString("log.level"),
		LogFormat:        v.GetString("log.format"),
		LogOutput:        v.GetString("log.output"),
	}

	// The development platform defaults to the production one
	if cfg.DevelopmentURL == "" {
		cfg.DevelopmentURL = cfg.PlatformURL
	}
	if cfg.DevelopmentToken == "" {
		cfg.DevelopmentToken = cfg.PlatformToken
	}

	return cfg, nil
}

// DomainName returns the organization when set, the domain otherwise.
func (c *Config) DomainName() string {
	if c.Organization != "" {
		return c.Organization
	}
	return c.Domain
}

// Validate checks the target of a reconciliation run. Endpoints are checked
// when the clients are built, since tests and embedders may inject them.
func (c *Config) Validate() error {
	if c.DomainName() == "" {
		return errors.NewConfigError("config", "no domain or organization specified", nil)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_product", constants.DefaultDataProduct)
	v.SetDefault("release_table_name", constants.DefaultReleaseTable)
	v.SetDefault("manifest.root", ".")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// loadTokens merges the tokens map of the config file with
// SEGMASTER_TOKEN_<DRIVER> environment variables.
func loadTokens(v *viper.Viper) map[string]string {
	tokens := make(map[string]string)
	for driver, token := range v.GetStringMapString("tokens") {
		tokens[segments.NormalizeDriver(driver)] = token
	}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, tokenEnvPrefix) || value == "" {
			continue
		}
		tokens[segments.NormalizeDriver(strings.TrimPrefix(key, tokenEnvPrefix))] = value
	}
	return tokens
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// godotenv never overrides variables already set, so the first file wins
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
