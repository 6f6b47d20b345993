package app

import (
	"context"
	"database/sql"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	_ "github.com/lib/pq" // registers the postgres driver for the warehouse store

	"github.com/agentstation/segmaster"
	"github.com/agentstation/segmaster/internal/transport"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
	"github.com/agentstation/segmaster/pkg/platform/rest"
	"github.com/agentstation/segmaster/pkg/tokens"
	"github.com/agentstation/segmaster/pkg/versions"
)

// Segmaster builds a reconciler from the configuration and any collaborators
// set through options.
func (a *App) Segmaster(ctx context.Context) (segmaster.Segmaster, error) {
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	client, err := a.platformClient()
	if err != nil {
		return nil, err
	}
	dev, err := a.developmentClient()
	if err != nil {
		return nil, err
	}
	store, err := a.versionStore(ctx)
	if err != nil {
		return nil, err
	}
	table, err := a.tokenTable(ctx)
	if err != nil {
		return nil, err
	}

	opts := []segmaster.Option{
		segmaster.WithPlatform(client),
		segmaster.WithDevelopment(dev),
		segmaster.WithVersionStore(store),
		segmaster.WithTokens(table),
		segmaster.WithOrganization(a.config.Organization),
		segmaster.WithDomain(a.config.Domain),
		segmaster.WithEnvironment(a.config.Environment),
		segmaster.WithLogger(a.logger),
	}
	if a.config.DataProduct != "" {
		opts = append(opts, segmaster.WithDataProduct(a.config.DataProduct))
	}

	sm, err := segmaster.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "segmaster", a.config.DomainName(), err)
	}
	return sm, nil
}

func (a *App) platformClient() (platform.Client, error) {
	if a.platform != nil {
		return a.platform, nil
	}
	if a.config.PlatformURL == "" {
		return nil, errors.NewConfigError("platform", "platform.url is required", nil)
	}
	return rest.New(a.config.PlatformURL, a.config.PlatformToken, transport.WithService("platform")), nil
}

func (a *App) developmentClient() (platform.DevelopmentClient, error) {
	if a.development != nil {
		return a.development, nil
	}
	if a.config.DevelopmentURL == "" {
		return nil, errors.NewConfigError("development", "development.url is required", nil)
	}
	return rest.New(a.config.DevelopmentURL, a.config.DevelopmentToken, transport.WithService("development")), nil
}

// versionStore selects the warehouse store when a DSN is configured and the
// release manifest otherwise.
func (a *App) versionStore(ctx context.Context) (versions.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var db *sql.DB
	if a.config.WarehouseDSN != "" {
		opened, err := sql.Open("postgres", a.config.WarehouseDSN)
		if err != nil {
			return nil, errors.NewConfigError("warehouse", "invalid dsn", err)
		}
		if err := opened.PingContext(ctx); err != nil {
			_ = opened.Close()
			return nil, errors.WrapResource("connect", "warehouse", "", err)
		}
		a.mu.Lock()
		a.db = opened
		a.mu.Unlock()
		db = opened
	}

	store, err := versions.Select(db, a.config.ReleaseTable, a.fs, a.config.ManifestRoot)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Bool("warehouse", db != nil).Msg("Selected version store")
	return store, nil
}

// tokenTable merges tokens from Secrets Manager, when configured, with the
// configured ones. Configured tokens win.
func (a *App) tokenTable(ctx context.Context) (tokens.Table, error) {
	local := tokens.New(a.config.Tokens)
	if a.config.TokensSecretID == "" {
		return local, nil
	}

	api := a.secrets
	if api == nil {
		var opts []func(*awsconfig.LoadOptions) error
		if a.config.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(a.config.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, errors.NewConfigError("aws", "loading AWS configuration", err)
		}
		api = secretsmanager.NewFromConfig(awsCfg)
	}

	secret, err := tokens.FromSecretsManager(ctx, api, a.config.TokensSecretID)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Strs("drivers", secret.Drivers()).Msg("Loaded driver tokens from Secrets Manager")
	return tokens.Merge(secret, local), nil
}
