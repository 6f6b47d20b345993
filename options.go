package segmaster

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/segmaster/pkg/constants"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
	"github.com/agentstation/segmaster/pkg/tokens"
	"github.com/agentstation/segmaster/pkg/versions"
)

// Option is a function that configures a Segmaster instance
type Option func(*config) error

// config holds the collaborators and settings of a reconciliation pass
type config struct {
	platform     platform.Client
	development  platform.DevelopmentClient
	store        versions.Store
	tokens       tokens.Table
	organization string
	domain       string
	dataProduct  string
	environment  string
	logger       *zerolog.Logger
	clock        func() time.Time
}

func defaultConfig() *config {
	return &config{
		tokens:      tokens.Table{},
		dataProduct: constants.DefaultDataProduct,
		clock:       time.Now,
	}
}

// domainName returns the organization when set, the domain otherwise.
func (c *config) domainName() string {
	if c.organization != "" {
		return c.organization
	}
	return c.domain
}

func (c *config) validate() error {
	switch {
	case c.platform == nil:
		return errors.NewConfigError("segmaster", "platform client is required", nil)
	case c.development == nil:
		return errors.NewConfigError("segmaster", "development client is required", nil)
	case c.store == nil:
		return errors.NewConfigError("segmaster", "version store is required", nil)
	case c.domainName() == "":
		return errors.NewConfigError("segmaster", "no domain or organization specified", nil)
	}
	return nil
}

// WithPlatform sets the platform client used to read domains and create projects.
func WithPlatform(client platform.Client) Option {
	return func(c *config) error {
		c.platform = client
		return nil
	}
}

// WithDevelopment sets the client used to validate development projects.
func WithDevelopment(client platform.DevelopmentClient) Option {
	return func(c *config) error {
		c.development = client
		return nil
	}
}

// WithVersionStore sets the store consulted for released versions.
// Use versions.Select to choose between the warehouse and the manifest.
func WithVersionStore(store versions.Store) Option {
	return func(c *config) error {
		c.store = store
		return nil
	}
}

// WithTokens sets the driver token table.
func WithTokens(table tokens.Table) Option {
	return func(c *config) error {
		c.tokens = table
		return nil
	}
}

// WithDomain sets the domain to reconcile.
func WithDomain(name string) Option {
	return func(c *config) error {
		c.domain = name
		return nil
	}
}

// WithOrganization sets the organization, which takes precedence over the domain.
func WithOrganization(name string) Option {
	return func(c *config) error {
		c.organization = name
		return nil
	}
}

// WithDataProduct sets the data product whose segments are reconciled
func WithDataProduct(id string) Option {
	return func(c *config) error {
		if id == "" {
			return errors.NewValidationError("data_product", id, "cannot be empty")
		}
		c.dataProduct = id
		return nil
	}
}

// WithEnvironment sets the environment new master projects are created in.
func WithEnvironment(env string) Option {
	return func(c *config) error {
		c.environment = env
		return nil
	}
}

// WithLogger sets the logger. Without one nothing is logged.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithClock overrides the clock used to stamp reconciled segments
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		c.clock = now
		return nil
	}
}
