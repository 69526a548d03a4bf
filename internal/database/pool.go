package database

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gfduarte/mt5-tickdata/internal/config"
)

// ConnString builds the PostgreSQL connection URL, including pool sizing,
// from config. Credentials are URL-escaped, so passwords may contain
// arbitrary characters.
func ConnString(cfg config.DBConfig) string {
	query := url.Values{}
	if cfg.SSLMode != "" {
		query.Set("sslmode", cfg.SSLMode)
	} else {
		query.Set("sslmode", "prefer")
	}
	if cfg.MinConns > 0 {
		query.Set("pool_min_conns", fmt.Sprint(cfg.MinConns))
	}
	if cfg.MaxConns > 0 {
		query.Set("pool_max_conns", fmt.Sprint(cfg.MaxConns))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     cfg.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Connect opens the connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
