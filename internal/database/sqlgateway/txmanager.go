package sqlgateway

import (
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"strings"
)

var ErrDatabaseLocked = errors.New("database is locked by another connection")

// TxConfig - configures tx
type TxConfig struct {
	Iso      sql.IsolationLevel
	ReadOnly bool
}

type TxConfigFunc func(*TxConfig)

// ReadOnly tx config function
func ReadOnly() TxConfigFunc {
	return func(txCfg *TxConfig) {
		txCfg.ReadOnly = true
	}
}

type Tx interface {
	ctxExecutor
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type TxCallback func(context.Context, Tx) (interface{}, error)

type TxManager interface {
	Transaction(context.Context, TxCallback, ...TxConfigFunc) (interface{}, error)
	WithoutTransaction(ctx context.Context, cb TxCallback) (interface{}, error)
}

type SqlxTxManager struct {
	db *sqlx.DB
}

var _ TxManager = (*SqlxTxManager)(nil)

func NewTxManager(db *sqlx.DB) *SqlxTxManager {
	return &SqlxTxManager{db: db}
}

func (txm *SqlxTxManager) Transaction(
	ctx context.Context,
	cb TxCallback,
	cfn ...TxConfigFunc,
) (interface{}, error) {
	txCfg := TxConfig{Iso: sql.LevelDefault}

	for _, fn := range cfn {
		fn(&txCfg)
	}

	return txm.isolate(ctx, cb, txCfg)
}

// WithoutTransaction runs the callback in autocommit mode
func (txm *SqlxTxManager) WithoutTransaction(
	ctx context.Context,
	cb TxCallback,
) (interface{}, error) {
	result, err := cb(ctx, txm.db)
	if err != nil {
		return nil, lockedOr(err)
	}

	return result, nil
}

func (txm *SqlxTxManager) isolate(
	ctx context.Context,
	cb TxCallback,
	txCfg TxConfig,
) (interface{}, error) {
	txx, err := txm.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: txCfg.ReadOnly, Isolation: txCfg.Iso})
	if err != nil {
		return nil, errors.Wrapf(
			lockedOr(err),
			"could not start transaction. read-only: %v, isolation: %s",
			txCfg.ReadOnly, txCfg.Iso,
		)
	}

	result, err := cb(ctx, txx)
	if err != nil {
		err = lockedOr(err)

		if rbErr := txx.Rollback(); rbErr != nil {
			return nil, errors.Wrap(err, " : ROLLBACK : "+rbErr.Error())
		}

		return nil, err
	}

	if err := txx.Commit(); err != nil {
		return nil, errors.Wrapf(
			lockedOr(err),
			"could not commit transaction. read-only: %v, isolation: %s",
			txCfg.ReadOnly, txCfg.Iso,
		)
	}

	return result, nil
}

func lockedOr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy") {
		return errors.Wrap(ErrDatabaseLocked, err.Error())
	}

	return err
}
