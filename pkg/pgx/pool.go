package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pool represents a connection configuration.
type Pool struct {
	Config     *pgxpool.Config // Takes precedence over ConnString
	ConnString string          // Used if Config is nil
	// ConnectTimeout bounds the total time spent retrying the initial connection.
	// Zero means a single attempt.
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

var ErrNoConnString = errors.New("either Config or ConnString must be provided")

// Connect creates a pool and pings it, retrying with exponential backoff until
// cfg.ConnectTimeout elapses or ctx is done.
func Connect(ctx context.Context, cfg Pool) (*pgxpool.Pool, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var pool *pgxpool.Pool
	operation := func() error {
		p, err := createPool(ctx, cfg)
		if err != nil {
			if errors.Is(err, ErrNoConnString) {
				return backoff.Permanent(err)
			}
			logger.Warn("postgres not ready", zap.Error(err))
			return err
		}
		pool = p
		return nil
	}

	var err error
	if cfg.ConnectTimeout > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 250 * time.Millisecond
		b.MaxInterval = 5 * time.Second
		b.MaxElapsedTime = cfg.ConnectTimeout
		err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	} else {
		err = operation()
	}
	if err != nil {
		return nil, fmt.Errorf("pgx: %w", err)
	}
	return pool, nil
}

func createPool(ctx context.Context, cfg Pool) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	switch {
	case cfg.Config != nil:
		pool, err = pgxpool.NewWithConfig(ctx, cfg.Config)
	case cfg.ConnString != "":
		pool, err = pgxpool.New(ctx, cfg.ConnString)
	default:
		return nil, ErrNoConnString
	}

	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping connection: %w", err)
	}

	return pool, nil
}
