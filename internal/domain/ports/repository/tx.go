package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// Repositories must gracefully accept nil (non-transactional path).
type Tx interface{}

// NoTX marks the non-transactional path at call sites.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via tx. Keeping the interface here lets the
// use-case layer compose multi-write flows without importing pgx types
// beyond the options struct.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
