package repositories

import "context"

// TxFn is a function that runs within a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. Every mutating tree
// operation runs inside exactly one ExecTx call; any error from fn rolls the
// whole transaction back, so no error path ever leaves partial state.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
