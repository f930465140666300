package sqlgateway

import (
	"context"
	"database/sql"
)

type ctxExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Dialect builds the queries against the tracking table
type Dialect interface {
	TableExistsQuery() (string, []interface{})
	ReadStateQuery() string
	InsertPendingQuery(name, checksum string) (string, []interface{})
	InsertCompletedQuery(name, checksum string) (string, []interface{})
	CompleteQuery(name string) (string, []interface{})
	ForgetQuery(name string) (string, []interface{})
}
