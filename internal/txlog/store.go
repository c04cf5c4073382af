package txlog

import "context"

// Store is the persistence boundary make_tx/make_summary_tx append
// through. The relational store's dialect is out of scope for this
// package; internal/database provides the pgx-backed implementation.
type Store interface {
	InsertTransaction(ctx context.Context, tx Transaction) error
	InsertSummaryTransaction(ctx context.Context, tx SummaryTransaction) error
}
