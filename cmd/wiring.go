package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acs-loader/internal/config"
	"github.com/sells-group/acs-loader/internal/db"
	"github.com/sells-group/acs-loader/internal/fetcher"
	"github.com/sells-group/acs-loader/internal/model"
	"github.com/sells-group/acs-loader/internal/warehouse"
	"github.com/sells-group/acs-loader/pkg/census"
	"github.com/sells-group/acs-loader/pkg/secrets"
)

// openWarehouse connects to the configured warehouse. The returned pool is
// nil for the sqlite driver, which has no load log.
func openWarehouse(ctx context.Context, c *config.Config) (warehouse.Warehouse, *pgxpool.Pool, func(), error) {
	switch c.Warehouse.Driver {
	case "sqlite":
		wh, err := warehouse.NewSQLite(c.Warehouse.DatabaseURL, c.Warehouse.Table)
		if err != nil {
			return nil, nil, nil, err
		}
		return wh, nil, func() { _ = wh.Close() }, nil
	case "postgres":
		pool, err := db.Connect(ctx, c.Warehouse.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return warehouse.NewPostgres(pool, c.Warehouse.Table), pool, pool.Close, nil
	default:
		return nil, nil, nil, eris.Errorf("unsupported warehouse driver %q", c.Warehouse.Driver)
	}
}

// resolveAPIKey picks the Census key: census.api_key, then the credential
// service, then no key at all.
func resolveAPIKey(ctx context.Context, c *config.Config) (string, error) {
	if c.Census.APIKey != "" {
		return c.Census.APIKey, nil
	}
	if c.Secrets.CredentialID > 0 {
		key, err := secrets.NewClient(c.Secrets.BaseURL, c.Secrets.Token).APIKey(ctx, c.Secrets.CredentialID)
		if err != nil {
			return "", eris.Wrapf(err, "resolve census api key from credential %d", c.Secrets.CredentialID)
		}
		return key, nil
	}
	zap.L().Warn("no Census API key configured, requests are subject to the keyless daily limit")
	return "", nil
}

func newCensusClient(c *config.Config, apiKey string) census.Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(c.Census.TimeoutSecs) * time.Second,
		MaxRetries: c.Census.MaxRetries,
	})
	opts := []census.Option{census.WithBaseURL(c.Census.BaseURL)}
	if c.Census.Dataset != "" {
		opts = append(opts, census.WithDataset(c.Census.Dataset))
	}
	if apiKey != "" {
		opts = append(opts, census.WithAPIKey(apiKey))
	}
	return census.NewClient(f, opts...)
}

func layoutFromConfig(c *config.Config) model.Layout {
	return model.Layout{NameField: c.Census.NameField, Measures: c.Census.Measures}
}
