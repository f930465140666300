package sqlgateway

import (
	"context"
	"github.com/denismitr/micromigrate/internal/retry"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"time"
)

const (
	DefaultConnectionAttempts    = 10
	DefaultConnectionTimeout     = 30 * time.Second
	DefaultConnectionAttemptStep = 200 * time.Millisecond
)

type ConnectOptions struct {
	MaxAttempts int
	MaxTimeout  time.Duration
	RetryStep   time.Duration
}

func NewDefaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{
		MaxAttempts: DefaultConnectionAttempts,
		MaxTimeout:  DefaultConnectionTimeout,
		RetryStep:   DefaultConnectionAttemptStep,
	}
}

type Connector interface {
	Connect(ctx context.Context) error
}

// RetryingConnector waits for the database to answer a trivial query,
// a busy or not yet available database is retried with growing pauses
type RetryingConnector struct {
	options   *ConnectOptions
	db        *sqlx.DB
	connected bool
}

var _ Connector = (*RetryingConnector)(nil)

func NewRetryingConnector(db *sqlx.DB, options *ConnectOptions) *RetryingConnector {
	if options == nil {
		options = NewDefaultConnectOptions()
	}

	return &RetryingConnector{db: db, options: options}
}

func (c *RetryingConnector) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.options.MaxTimeout)
	defer cancel()

	err := retry.Incremental(ctx, c.options.RetryStep, c.options.MaxAttempts, func(attempt int) error {
		if err := c.db.PingContext(ctx); err != nil {
			return retry.Error(errors.Wrap(err, "db ping failed"), attempt)
		}

		var result int
		if err := c.db.QueryRowxContext(ctx, "select 1").Scan(&result); err != nil {
			return retry.Error(errors.Wrap(err, "could not query db"), attempt)
		}

		return nil
	})

	if err != nil {
		return errors.Wrap(err, "could not establish DB connection")
	}

	c.connected = true

	return nil
}
