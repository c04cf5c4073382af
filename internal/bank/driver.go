package bank

import (
	"context"

	"github.com/google/uuid"

	"bankengine/pkg/money"
)

// Invoice is the subset of a persisted invoice the dispatcher reasons
// about. The full row (rhash, expiry, settled_date, ...) lives in
// internal/database; the dispatcher only needs what's listed here.
type Invoice struct {
	PaymentRequest        string
	PaymentHash           string
	ValueSats             int64
	UID                   *uint64
	AccountID             string
	Owner                 *uint64
	Settled               bool
	Currency              *money.Currency
	TargetAccountCurrency *money.Currency
	Reference             *string
}

// InvoiceStore persists invoices and answers the lookups the deposit
// and payment handlers need.
type InvoiceStore interface {
	GetByPaymentRequest(ctx context.Context, paymentRequest string) (Invoice, bool, error)
	Insert(ctx context.Context, inv Invoice) error
	MarkSettled(ctx context.Context, paymentRequest string) error
}

// LnurlTemplate is the remembered withdrawal intent a
// CreateLnurlWithdrawalRequest stashes for the later Get/Pay steps.
type LnurlTemplate struct {
	ReqID    string
	UID      uint64
	Currency money.Currency
	Amount   money.Money
	Rate     *money.Rate
}

// LnurlStore holds the single-use templates the three-step withdrawal
// flow hands off between steps.
type LnurlStore interface {
	Put(reqID string, tmpl LnurlTemplate)
	// TakeOnce returns and removes the template — a Get is single-use.
	TakeOnce(reqID string) (LnurlTemplate, bool)
}

// Route is one candidate path a fee probe returned.
type Route struct {
	TotalFeeSats int64
}

// Driver is the Lightning node boundary: invoice creation, decode,
// fee probing, and payment dispatch. Its implementation
// (internal/lnd) is out of scope for the dispatcher itself.
type Driver interface {
	CreateInvoice(ctx context.Context, amountSats int64, memo string, uid uint64, accountID string) (Invoice, error)
	DecodeInvoice(ctx context.Context, paymentRequest string) (DecodedInvoice, error)
	Probe(ctx context.Context, paymentRequest string, feeMargin float64) ([]Route, error)
	PayInvoice(ctx context.Context, paymentRequest string, maxFeeSats int64) (PayResult, error)
}

// DecodedInvoice is what the driver extracts from a BOLT-11 string.
type DecodedInvoice struct {
	PaymentHash     string
	AmountMilliSats int64
	Expired         bool
}

// PayResult is what a dispatched Lightning payment resolves to.
type PayResult struct {
	Success     bool
	FeeSats     int64
	Preimage    string
	PaymentHash string
}

// PayJob carries everything a spawned pay attempt needs — it holds no
// ledger reference, matching the "pay tasks hold no ledger references"
// rule; all booking happens back in the dispatcher once the result
// rejoins.
type PayJob struct {
	ReqID          uuid.UUID
	UID            uint64
	Currency       money.Currency
	Amount         money.Money
	ReservedFee    money.Money
	PaymentRequest string
	Rate           money.Rate
	MaxFeeSats     int64
}

// PaySpawner detaches a Lightning pay attempt from the dispatcher
// goroutine and posts its outcome onto results once the driver call
// returns. Implemented by internal/paytask.
type PaySpawner interface {
	Spawn(ctx context.Context, job PayJob, driver Driver, results chan<- PaymentResult)
}

