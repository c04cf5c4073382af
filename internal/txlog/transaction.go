// Package txlog implements the two booking primitives every ledger
// mutation in the bank engine goes through: make_tx (an atomic,
// same-currency debit/credit) and make_summary_tx (a cross-currency
// audit row tying the legs of a multi-leg booking to one customer
// visible event).
package txlog

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankengine/internal/ledger"
	"bankengine/pkg/money"
)

// ErrFailedTransaction is returned by MakeTx on any precondition
// failure or store error. Callers must not treat their local account
// copies as committed when this is returned.
var ErrFailedTransaction = errors.New("txlog: failed transaction")

// TxType classifies a booking by whether it crosses the
// Internal/External boundary.
type TxType string

const (
	TxInternal TxType = "internal"
	TxExternal TxType = "external"
)

// Reference tags used by MakeSummaryTx to label the customer-visible
// event a multi-leg booking belongs to.
const (
	RefInternalTransfer = "InternalTransfer"
	RefExternalDeposit  = "ExternalDeposit"
	RefExternalPayment  = "ExternalPayment"
	RefPaymentRefund    = "PaymentRefund"
	RefSwap             = "Swap"
)

// Transaction is a single same-currency booking row.
type Transaction struct {
	TxID             string
	OutboundUID      ledger.UserID
	InboundUID       ledger.UserID
	CreatedAt        time.Time
	OutboundAmount   decimal.Decimal
	InboundAmount    decimal.Decimal
	OutboundAccount  uuid.UUID
	InboundAccount   uuid.UUID
	OutboundCurrency money.Currency
	InboundCurrency  money.Currency
	ExchangeRate     decimal.Decimal
	Type             TxType
	Fees             decimal.Decimal
}

// SummaryTransaction is a cross-currency audit row. It never mutates
// balances; it only links the legs of a multi-leg booking (by their
// sub-txids) to a single reference-tagged event.
type SummaryTransaction struct {
	TxID             string
	OutboundTxID     *string
	InboundTxID      *string
	FeeTxID          *string
	OutboundUID      ledger.UserID
	InboundUID       ledger.UserID
	CreatedAt        time.Time
	OutboundAmount   decimal.Decimal
	InboundAmount    decimal.Decimal
	OutboundAccount  uuid.UUID
	InboundAccount   uuid.UUID
	OutboundCurrency money.Currency
	InboundCurrency  money.Currency
	ExchangeRate     decimal.Decimal
	Type             TxType
	Fees             decimal.Decimal
	Reference        string
}

// Sequencer produces the monotonic local sequence number make_tx mixes
// into its txid so two bookings within the same millisecond never
// collide. It is intentionally not used by MakeSummaryTx — see
// DESIGN.md for why that asymmetry is preserved rather than "fixed".
type Sequencer struct {
	counter uint64
}

// Next returns the next sequence value, starting at 1.
func (s *Sequencer) Next() uint64 {
	return atomic.AddUint64(&s.counter, 1)
}
