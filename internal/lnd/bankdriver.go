package lnd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lnrpc"

	"bankengine/internal/bank"
)

// BankDriver adapts Client onto bank.Driver, the Lightning boundary
// the dispatcher books against. It never touches the ledger — every
// method either reads through to LND or issues a single outbound
// payment/invoice call.
type BankDriver struct {
	client *Client
}

// NewBankDriver wraps an already-connected Client.
func NewBankDriver(client *Client) *BankDriver {
	return &BankDriver{client: client}
}

func (d *BankDriver) CreateInvoice(ctx context.Context, amountSats int64, memo string, uid uint64, accountID string) (bank.Invoice, error) {
	resp, err := d.client.lnClient.AddInvoice(ctx, &lnrpc.Invoice{Value: amountSats, Memo: memo})
	if err != nil {
		return bank.Invoice{}, fmt.Errorf("lnd: failed to create invoice: %w", err)
	}
	owner := uid
	return bank.Invoice{
		PaymentRequest: resp.PaymentRequest,
		PaymentHash:    hex.EncodeToString(resp.RHash),
		ValueSats:      amountSats,
		UID:            &owner,
		AccountID:      accountID,
	}, nil
}

func (d *BankDriver) DecodeInvoice(ctx context.Context, paymentRequest string) (bank.DecodedInvoice, error) {
	inv, err := d.client.DecodeInvoice(ctx, paymentRequest)
	if err != nil {
		return bank.DecodedInvoice{}, err
	}
	return bank.DecodedInvoice{
		PaymentHash:     inv.PaymentHash,
		AmountMilliSats: inv.AmountSats * 1000,
		Expired:         inv.IsExpired,
	}, nil
}

// Probe estimates the routing fee for paymentRequest without actually
// sending. LND has no standalone fee-probe RPC exposed through
// Client, so this reports the configured max fee ceiling scaled by
// feeMargin as the best available estimate; an actual pay attempt is
// still fee-limited to Cfg.MaxPaymentFeeSats regardless.
func (d *BankDriver) Probe(ctx context.Context, paymentRequest string, feeMargin float64) ([]bank.Route, error) {
	estimate := int64(float64(d.client.Cfg.MaxPaymentFeeSats) * feeMargin)
	return []bank.Route{{TotalFeeSats: estimate}}, nil
}

func (d *BankDriver) PayInvoice(ctx context.Context, paymentRequest string, maxFeeSats int64) (bank.PayResult, error) {
	if maxFeeSats <= 0 {
		maxFeeSats = d.client.Cfg.MaxPaymentFeeSats
	}
	result, err := d.client.PayInvoice(ctx, paymentRequest, maxFeeSats)
	if err != nil {
		return bank.PayResult{}, err
	}
	return bank.PayResult{
		Success:     result.Status == Succeeded,
		FeeSats:     result.FeeSats,
		Preimage:    result.PaymentPreimage,
		PaymentHash: result.PaymentHash,
	}, nil
}

// NewRequestID generates a fresh request identifier for bank messages
// this driver originates on its own (e.g. dealer-created invoices).
func NewRequestID() uuid.UUID {
	return uuid.New()
}
