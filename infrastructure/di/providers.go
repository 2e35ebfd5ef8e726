package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"refgraph-backend/application/ports"
	"refgraph-backend/application/queries"
	querybus "refgraph-backend/application/queries/bus"
	queries_handlers "refgraph-backend/application/queries/handlers"
	"refgraph-backend/infrastructure/config"
	"refgraph-backend/infrastructure/lookup/pubmed"
	"refgraph-backend/infrastructure/persistence/postgres"
	"refgraph-backend/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pool     *pgxpool.Pool
	QueryBus *querybus.QueryBus
	Metrics  *observability.Metrics
}

// ProvideLogger creates a new logger instance.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// ProvidePgxPool creates the Postgres connection pool.
func ProvidePgxPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return pool, nil
}

// ProvideStorageCapabilities resolves the optional-schema flags once, per
// configuration, instead of probing columns per request.
func ProvideStorageCapabilities(cfg *config.Config) ports.StorageCapabilities {
	return ports.StorageCapabilities{
		CitationColumns:   cfg.HasCitationColumns,
		SourceQueryColumn: cfg.HasSourceQueryColumn,
	}
}

// ProvideArticleRepository creates the storage adapter.
func ProvideArticleRepository(pool *pgxpool.Pool, caps ports.StorageCapabilities, logger *zap.Logger) ports.ArticleRepository {
	return postgres.NewArticleRepository(pool, caps, logger)
}

// ProvideBibliographicLookup creates the external lookup client.
func ProvideBibliographicLookup(cfg *config.Config, logger *zap.Logger) ports.BibliographicLookup {
	return pubmed.NewClient(
		cfg.LookupBaseURL,
		time.Duration(cfg.LookupThrottleMs)*time.Millisecond,
		time.Duration(cfg.LookupTimeoutMs)*time.Millisecond,
		logger,
	)
}

// ProvideMetrics creates the engine metrics.
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

// ProvideQueryBus creates a query bus with registered handlers.
func ProvideQueryBus(
	articles ports.ArticleRepository,
	lookup ports.BibliographicLookup,
	caps ports.StorageCapabilities,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()

	graphHandler := queries_handlers.NewGetCitationGraphHandler(
		articles,
		lookup,
		caps,
		time.Duration(cfg.EnrichTimeoutMs)*time.Millisecond,
		metrics,
		logger,
	)
	queryBus.Register(queries.GetCitationGraphQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, query querybus.Query) (any, error) {
			graphQuery, ok := query.(queries.GetCitationGraphQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return graphHandler.Handle(ctx, graphQuery)
		},
	))

	return queryBus
}

// Close releases the container's pooled resources.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
