package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bankengine/internal/txlog"
)

// LedgerRepository persists every booked transaction and summary
// transaction, implementing txlog.Store against Postgres. Rows are
// append-only: nothing in this repository ever updates or deletes a
// transaction once inserted.
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository instance.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db.pool}
}

// InsertTransaction implements txlog.Store.
func (r *LedgerRepository) InsertTransaction(ctx context.Context, tx txlog.Transaction) error {
	query := `INSERT INTO ledger_transactions (
		tx_id, outbound_uid, inbound_uid, created_at,
		outbound_amount, inbound_amount, outbound_account, inbound_account,
		outbound_currency, inbound_currency, exchange_rate, type, fees
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		tx.TxID, int64(tx.OutboundUID), int64(tx.InboundUID), tx.CreatedAt,
		tx.OutboundAmount, tx.InboundAmount, tx.OutboundAccount, tx.InboundAccount,
		string(tx.OutboundCurrency), string(tx.InboundCurrency), tx.ExchangeRate, string(tx.Type), tx.Fees,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger transaction %s: %w", tx.TxID, err)
	}
	return nil
}

// InsertSummaryTransaction implements txlog.Store.
func (r *LedgerRepository) InsertSummaryTransaction(ctx context.Context, tx txlog.SummaryTransaction) error {
	query := `INSERT INTO ledger_summary_transactions (
		tx_id, outbound_tx_id, inbound_tx_id, fee_tx_id,
		outbound_uid, inbound_uid, created_at,
		outbound_amount, inbound_amount, outbound_account, inbound_account,
		outbound_currency, inbound_currency, exchange_rate, type, fees, reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		tx.TxID, tx.OutboundTxID, tx.InboundTxID, tx.FeeTxID,
		int64(tx.OutboundUID), int64(tx.InboundUID), tx.CreatedAt,
		tx.OutboundAmount, tx.InboundAmount, tx.OutboundAccount, tx.InboundAccount,
		string(tx.OutboundCurrency), string(tx.InboundCurrency), tx.ExchangeRate, string(tx.Type), tx.Fees, tx.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary transaction %s: %w", tx.TxID, err)
	}
	return nil
}

