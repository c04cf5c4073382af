package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankengine/internal/bank"
	"bankengine/pkg/money"
)

// ErrInvoiceNotFound is returned when an invoice row does not exist.
var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceRepository implements bank.InvoiceStore against Postgres.
type InvoiceRepository struct {
	db *pgxpool.Pool
}

// NewInvoiceRepository creates a new invoice repository instance.
func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{db: db.pool}
}

// Insert implements bank.InvoiceStore.
func (r *InvoiceRepository) Insert(ctx context.Context, inv bank.Invoice) error {
	var currency, targetCurrency *string
	if inv.Currency != nil {
		c := string(*inv.Currency)
		currency = &c
	}
	if inv.TargetAccountCurrency != nil {
		c := string(*inv.TargetAccountCurrency)
		targetCurrency = &c
	}

	query := `INSERT INTO invoices (
		payment_request, payment_hash, value_sats, uid, account_id,
		owner, settled, currency, target_account_currency, reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (payment_request) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		inv.PaymentRequest, inv.PaymentHash, inv.ValueSats, inv.UID, inv.AccountID,
		inv.Owner, inv.Settled, currency, targetCurrency, inv.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice %s: %w", inv.PaymentRequest, err)
	}
	return nil
}

// GetByPaymentRequest implements bank.InvoiceStore.
func (r *InvoiceRepository) GetByPaymentRequest(ctx context.Context, paymentRequest string) (bank.Invoice, bool, error) {
	query := `SELECT
		payment_request, payment_hash, value_sats, uid, account_id,
		owner, settled, currency, target_account_currency, reference
	    FROM invoices WHERE payment_request = $1`

	var inv bank.Invoice
	var currency, targetCurrency *string

	err := r.db.QueryRow(ctx, query, paymentRequest).Scan(
		&inv.PaymentRequest, &inv.PaymentHash, &inv.ValueSats, &inv.UID, &inv.AccountID,
		&inv.Owner, &inv.Settled, &currency, &targetCurrency, &inv.Reference,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bank.Invoice{}, false, nil
		}
		return bank.Invoice{}, false, fmt.Errorf("failed to get invoice %s: %w", paymentRequest, err)
	}

	if currency != nil {
		c := money.Currency(*currency)
		inv.Currency = &c
	}
	if targetCurrency != nil {
		c := money.Currency(*targetCurrency)
		inv.TargetAccountCurrency = &c
	}
	return inv, true, nil
}

// MarkSettled implements bank.InvoiceStore.
func (r *InvoiceRepository) MarkSettled(ctx context.Context, paymentRequest string) error {
	commandTag, err := r.db.Exec(ctx, `UPDATE invoices SET settled = true WHERE payment_request = $1`, paymentRequest)
	if err != nil {
		return fmt.Errorf("failed to mark invoice %s settled: %w", paymentRequest, err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
