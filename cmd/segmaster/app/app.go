// Package app provides the application context and dependency management
// for the segmaster command. Configuration, logging and the collaborators of
// a reconciliation pass are resolved here and handed to the commands.
package app

import (
	"context"
	"database/sql"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/segmaster/internal/config"
	"github.com/agentstation/segmaster/pkg/platform"
	"github.com/agentstation/segmaster/pkg/tokens"
	"github.com/agentstation/segmaster/pkg/versions"
)

// App represents the segmaster application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration, loaded before the first command runs
	config *config.Config
	flags  *Flags

	logger *zerolog.Logger
	fs     afero.Fs
	out    io.Writer

	// Collaborators that replace the configured ones
	platform    platform.Client
	development platform.DevelopmentClient
	store       versions.Store
	secrets     tokens.SecretsAPI

	mu sync.Mutex
	db *sql.DB
}

// Flags holds the global command-line flags.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	LogLevel   string
	Format     string
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		flags:   &Flags{},
		fs:      afero.NewOsFs(),
		out:     os.Stdout,
	}

	logger := NewLogger(&config.Config{LogFormat: "auto", LogOutput: "stderr"}, app.flags)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Shutdown releases the resources opened by commands.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a configuration, skipping config file loading.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithFs sets the filesystem segment files and release manifests are read from.
func WithFs(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}

// WithOutput sets where command output is written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithPlatform sets the platform client instead of the configured REST client.
func WithPlatform(client platform.Client) Option {
	return func(a *App) error {
		a.platform = client
		return nil
	}
}

// WithDevelopment sets the development client instead of the configured REST client.
func WithDevelopment(client platform.DevelopmentClient) Option {
	return func(a *App) error {
		a.development = client
		return nil
	}
}

// WithVersionStore sets the version store instead of the configured one.
func WithVersionStore(store versions.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// WithSecrets sets the Secrets Manager client used to load driver tokens.
func WithSecrets(api tokens.SecretsAPI) Option {
	return func(a *App) error {
		a.secrets = api
		return nil
	}
}
