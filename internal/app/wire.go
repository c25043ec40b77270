package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/retail-ledger/internal/accounts"
	"github.com/odyssey-erp/retail-ledger/internal/companies"
	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/platform/cache"
	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
	"github.com/odyssey-erp/retail-ledger/internal/reports"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
	"github.com/odyssey-erp/retail-ledger/internal/vouchers"
)

// Infra holds the process-wide connections.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Cache *cache.Versioned
}

// Connect opens Postgres and Redis. A Redis outage leaves the report cache disabled.
func Connect(ctx context.Context, cfg *Config, logger *slog.Logger) (*Infra, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, err
	}
	infra := &Infra{Pool: pool}
	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		return infra, nil
	}
	infra.Redis = client
	infra.Cache = cache.NewVersioned(client, cfg.ReportCacheTTL)
	return infra, nil
}

// Close releases the connections.
func (i *Infra) Close(logger *slog.Logger) {
	if i == nil {
		return
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}

// Services are the domain services built over Infra.
type Services struct {
	Tenants  *companies.Resolver
	Accounts *accounts.Service
	Vouchers *vouchers.Service
	Reports  *reports.Service
}

// NewServices wires repositories into services. recorder may be nil.
func NewServices(infra *Infra, cfg *Config, recorder vouchers.PostingRecorder, logger *slog.Logger) *Services {
	audit := shared.NewAuditLogger(infra.Pool)
	accountRepo := accounts.NewRepository(infra.Pool)

	var invalidator vouchers.CacheInvalidator
	var reportCache reports.Cache
	if infra.Cache != nil {
		invalidator = infra.Cache
		reportCache = infra.Cache
	}
	return &Services{
		Tenants:  companies.NewResolver(companies.NewRepository(infra.Pool)),
		Accounts: accounts.NewService(accountRepo, audit, invalidator, logger),
		Vouchers: vouchers.NewService(vouchers.NewRepository(infra.Pool), audit, invalidator, recorder, logger,
			vouchers.Options{Prefixes: cfg.BillPrefixes()}),
		Reports: reports.NewService(accountRepo, ledger.NewRepository(infra.Pool), reports.NewItemRepository(infra.Pool), reportCache, logger),
	}
}
