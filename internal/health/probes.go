package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arturmelo/flagbearer/internal/cache"
)

// --- Postgres Probe ---

type postgresChecker struct {
	pool *pgxpool.Pool
}

// NewPostgresChecker creates a health checker for a pgx connection pool.
func NewPostgresChecker(pool *pgxpool.Pool) Checker {
	return &postgresChecker{pool: pool}
}

func (p *postgresChecker) Name() string {
	return "database"
}

func (p *postgresChecker) Check(ctx context.Context) error {
	// Strict timeout so a slow database cannot stall the whole check loop.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// --- Result Cache Probe ---

type cacheChecker struct {
	svc cache.Service
}

// NewCacheChecker creates a health checker for the result cache backend.
func NewCacheChecker(svc cache.Service) Checker {
	return &cacheChecker{svc: svc}
}

func (c *cacheChecker) Name() string {
	return "cache"
}

func (c *cacheChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	return c.svc.HealthCheck(ctx)
}
