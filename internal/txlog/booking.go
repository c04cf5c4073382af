package txlog

import (
	"context"
	"fmt"
	"time"

	"bankengine/internal/ledger"
	"bankengine/pkg/money"
)

// MakeTx books an atomic, same-currency debit/credit: out.Balance -=
// amount, in.Balance += amount. Both accounts are mutated in place so
// the caller's local copies reflect the booking; the caller is
// responsible for writing those copies back into the ledger only
// after MakeTx returns a txid, never before.
//
// Preconditions: amount > 0, out.Currency == in.Currency ==
// amount.Currency. Any violation, or a store append failure, returns
// ErrFailedTransaction and leaves both accounts untouched.
func MakeTx(
	ctx context.Context,
	store Store,
	seq *Sequencer,
	out *ledger.Account,
	outUID ledger.UserID,
	in *ledger.Account,
	inUID ledger.UserID,
	amount money.Money,
) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", ErrFailedTransaction)
	}
	if out.Currency != in.Currency || out.Currency != amount.Currency {
		return "", fmt.Errorf("%w: currency mismatch", ErrFailedTransaction)
	}

	txType := TxInternal
	if out.Type != in.Type {
		txType = TxExternal
	}

	txid := fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq.Next())

	row := Transaction{
		TxID:             txid,
		OutboundUID:      outUID,
		InboundUID:       inUID,
		CreatedAt:        time.Now(),
		OutboundAmount:   amount.Value,
		InboundAmount:    amount.Value,
		OutboundAccount:  out.AccountID,
		InboundAccount:   in.AccountID,
		OutboundCurrency: out.Currency,
		InboundCurrency:  in.Currency,
		ExchangeRate:     money.OneToOne(out.Currency).Value,
		Type:             txType,
		Fees:             amount.Value.Sub(amount.Value), // zero, same-currency legs carry no fee of their own
	}

	if err := store.InsertTransaction(ctx, row); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedTransaction, err)
	}

	out.Balance = out.Balance.Sub(amount.Value)
	in.Balance = in.Balance.Add(amount.Value)

	return txid, nil
}

// MakeSummaryTxParams carries the optional annotations a multi-leg
// booking wants recorded on its summary row.
type MakeSummaryTxParams struct {
	OutboundTxID *string
	InboundTxID  *string
	FeeTxID      *string
	Rate         *money.Rate
	Fees         *money.Money
	Reference    string
}

// MakeSummaryTx appends a cross-currency audit row linking the legs of
// a multi-leg booking. It never mutates account balances. Rate
// defaults to 1:1 and fees default to zero when not supplied; the
// reference tag defaults to "Payment".
//
// Unlike MakeTx, the txid here is wall-clock-only with no sequence
// suffix — collisions are possible under sub-millisecond bursts. This
// mirrors a known discrepancy in the booking logic this package is
// modeled on; see DESIGN.md for why it is kept rather than silently
// changed.
func MakeSummaryTx(
	ctx context.Context,
	store Store,
	out ledger.Account,
	outUID ledger.UserID,
	in ledger.Account,
	inUID ledger.UserID,
	outboundAmount money.Money,
	inboundAmount money.Money,
	params MakeSummaryTxParams,
) error {
	rate := money.OneToOne(out.Currency)
	if params.Rate != nil {
		rate = *params.Rate
	}

	fees := money.Zero(in.Currency)
	if params.Fees != nil {
		fees = *params.Fees
	}

	reference := params.Reference
	if reference == "" {
		reference = "Payment"
	}

	txType := TxInternal
	if out.Type != in.Type {
		txType = TxExternal
	}

	row := SummaryTransaction{
		TxID:             fmt.Sprintf("%d", time.Now().UnixNano()),
		OutboundTxID:     params.OutboundTxID,
		InboundTxID:      params.InboundTxID,
		FeeTxID:          params.FeeTxID,
		OutboundUID:      outUID,
		InboundUID:       inUID,
		CreatedAt:        time.Now(),
		OutboundAmount:   outboundAmount.Value,
		InboundAmount:    inboundAmount.Value,
		OutboundAccount:  out.AccountID,
		InboundAccount:   in.AccountID,
		OutboundCurrency: out.Currency,
		InboundCurrency:  in.Currency,
		ExchangeRate:     rate.Value,
		Type:             txType,
		Fees:             fees.Value,
		Reference:        reference,
	}

	return store.InsertSummaryTransaction(ctx, row)
}
