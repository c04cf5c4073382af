// Package bank implements the message-dispatcher state machine: the
// single-writer loop that owns the ledger and books every transaction
// the rest of this module describes.
package bank

import (
	"github.com/google/uuid"

	"bankengine/internal/ledger"
	"bankengine/pkg/money"
)

// Destination names where an outbound message should be delivered.
// The dispatcher never delivers messages itself — it hands
// (Message, Destination) pairs to a listener callback supplied by the
// caller, which owns the actual transport.
type Destination int

const (
	Api Destination = iota
	Dealer
	Loopback
)

func (d Destination) String() string {
	switch d {
	case Api:
		return "api"
	case Dealer:
		return "dealer"
	case Loopback:
		return "loopback"
	default:
		return "unknown"
	}
}

// Listener receives every outbound message the dispatcher produces
// while processing one inbound message.
type Listener func(msg any, dest Destination)

// Meta carries the free-form request metadata every API message
// threads through unchanged.
type Meta = map[string]string

// --- Api messages -----------------------------------------------------

// InvoiceRequest asks the engine to create a Lightning invoice for a
// deposit of amount in currency, optionally crediting a specific
// account_id and, once it has round-tripped through the dealer for a
// non-BTC currency, carrying a rate.
type InvoiceRequest struct {
	ReqID                 uuid.UUID
	UID                   ledger.UserID
	Amount                money.Money
	Currency              money.Currency
	TargetAccountCurrency *money.Currency
	AccountID             *uuid.UUID
	Rate                  *money.Rate
	Fees                  *money.Money
	Meta                  string
	Metadata              Meta
}

// InvoiceResponseError enumerates the typed failures InvoiceResponse
// can carry.
type InvoiceResponseError string

const (
	ErrRequestLimitExceeded     InvoiceResponseError = "RequestLimitExceeded"
	ErrInvoicingSuspended       InvoiceResponseError = "InvoicingSuspended"
	ErrWithdrawalOnly           InvoiceResponseError = "WithdrawalOnly"
	ErrAccountDoesNotExist      InvoiceResponseError = "AccountDoesNotExist"
	ErrDepositLimitExceeded     InvoiceResponseError = "DepositLimitExceeded"
	ErrDatabaseConnectionFailed InvoiceResponseError = "DatabaseConnectionFailed"
	ErrRateNotAvailable         InvoiceResponseError = "RateNotAvailable"
	ErrCurrencyNotAvailable     InvoiceResponseError = "CurrencyNotAvailable"
	ErrLightningDriverFailed    InvoiceResponseError = "LightningDriverFailed"
)

// InvoiceResponse answers an InvoiceRequest, either with a BOLT-11
// payment_request or a typed error.
type InvoiceResponse struct {
	ReqID                 uuid.UUID
	UID                   ledger.UserID
	Amount                money.Money
	Currency              money.Currency
	TargetAccountCurrency *money.Currency
	AccountID             *uuid.UUID
	Rate                  *money.Rate
	Fees                  *money.Money
	PaymentRequest        *string
	Meta                  string
	Metadata              Meta
	Error                 *InvoiceResponseError
}

// PaymentResponseError enumerates the typed failures PaymentResponse
// can carry.
type PaymentResponseError string

const (
	ErrPaymentRequestLimitExceeded PaymentResponseError = "RequestLimitExceeded"
	ErrUserAccountNotFound         PaymentResponseError = "UserAccountNotFound"
	ErrInvalidAmount               PaymentResponseError = "InvalidAmount"
	ErrInvalidInvoice              PaymentResponseError = "InvalidInvoice"
	ErrZeroAmountInvoice           PaymentResponseError = "ZeroAmountInvoice"
	ErrSelfPayment                 PaymentResponseError = "SelfPayment"
	ErrInvoiceAlreadyPaid          PaymentResponseError = "InvoiceAlreadyPaid"
	ErrInsufficientFundsForFees    PaymentResponseError = "InsufficientFundsForFees"
	ErrPaymentDatabaseFailed       PaymentResponseError = "DatabaseConnectionFailed"
	ErrUserDoesNotExist            PaymentResponseError = "UserDoesNotExist"
	ErrExternalPaymentFailed       PaymentResponseError = "ExternalPaymentFailed"
	ErrInsufficientFunds           PaymentResponseError = "InsufficientFunds"
	ErrCurrencyNotAvailableForPay  PaymentResponseError = "CurrencyNotAvailable"
)

// PaymentRequest is a withdrawal intent: either a BOLT-11 payment, or
// (when Recipient is set) an internal username-addressed transfer.
type PaymentRequest struct {
	ReqID          uuid.UUID
	UID            ledger.UserID
	Currency       money.Currency
	Amount         *money.Money
	PaymentRequest *string
	Recipient      *string
	Rate           *money.Rate
	Fees           *money.Money
}

// PaymentResponse answers a PaymentRequest. Success is only ever true
// once the Lightning payment has actually settled (via PaymentResult)
// or, for an internal transfer, once the booking completes
// synchronously.
type PaymentResponse struct {
	ReqID          uuid.UUID
	UID            ledger.UserID
	Success        bool
	PaymentHash    string
	Preimage       *string
	PaymentRequest *string
	Currency       money.Currency
	Amount         *money.Money
	Fees           *money.Money
	Rate           *money.Rate
	Error          *PaymentResponseError
}

// NewPaymentError builds an error PaymentResponse that mirrors the
// originating request's identifying fields, the pattern every
// rejection path in this package follows.
func NewPaymentError(errKind PaymentResponseError, reqID uuid.UUID, uid ledger.UserID, paymentRequest *string, currency money.Currency, amount *money.Money) PaymentResponse {
	return PaymentResponse{
		ReqID:          reqID,
		UID:            uid,
		Success:        false,
		PaymentHash:    uuid.New().String(),
		PaymentRequest: paymentRequest,
		Currency:       currency,
		Amount:         amount,
		Error:          &errKind,
	}
}

// SwapRequest asks the dealer for a quote-bound currency swap.
// OnchainPayoutAddress, when set, is validated as a BTC address before
// the request is forwarded and is carried through to the response; the
// swap's "to" amount is still credited to the customer's ledger
// account, and no on-chain payout is made.
type SwapRequest struct {
	ReqID                 uuid.UUID
	UID                   ledger.UserID
	FromCurrency          money.Currency
	ToCurrency            money.Currency
	Amount                money.Money
	Immediate             bool
	OnchainPayoutAddress  *string
}

// SwapResponse settles a swap the dealer has quoted.
type SwapResponse struct {
	ReqID                 uuid.UUID
	UID                   ledger.UserID
	FromCurrency          money.Currency
	ToCurrency            money.Currency
	Amount                money.Money
	Rate                  *money.Rate
	OnchainPayoutAddress  *string
	Success               bool
	Error                 *string
}

// GetBalancesRequest/Balances are a pure ledger read.
type GetBalancesRequest struct {
	UID ledger.UserID
}

// AccountBalance is one line of a Balances reply.
type AccountBalance struct {
	AccountID uuid.UUID
	Currency  money.Currency
	Balance   money.Money
}

type Balances struct {
	UID      ledger.UserID
	Accounts []AccountBalance
}

// QuoteRequest/QuoteResponse are forwarded to the dealer unmodified;
// the engine never quotes rates itself.
type QuoteRequest struct {
	ReqID        uuid.UUID
	FromCurrency money.Currency
	ToCurrency   money.Currency
	Amount       money.Money
}

type QuoteResponse struct {
	ReqID uuid.UUID
	Rate  money.Rate
}

// AvailableCurrenciesRequest/Response read the engine's currently
// quotable currency set.
type AvailableCurrenciesRequest struct{}

type AvailableCurrenciesResponse struct {
	Currencies []money.Currency
}

// GetNodeInfoRequest/Response pass through to the Lightning driver.
type GetNodeInfoRequest struct{}

type GetNodeInfoResponse struct {
	Alias      string
	PubKey     string
	Synced     bool
	NumPeers   int
	BlockHeight uint32
}

// QueryRouteRequest/Response pass through to the Lightning driver's
// route probe.
type QueryRouteRequest struct {
	PaymentRequest string
}

type QueryRouteResponse struct {
	FeeSats int64
	Found   bool
}

// --- LNURL-withdraw three-step flow ------------------------------------

type CreateLnurlWithdrawalRequest struct {
	ReqID    uuid.UUID
	UID      ledger.UserID
	Currency money.Currency
	Amount   money.Money
	Rate     *money.Rate
}

type CreateLnurlWithdrawalResponse struct {
	ReqID   uuid.UUID
	Lnurl   string
	Error   *string
}

type GetLnurlWithdrawalRequest struct {
	ReqID uuid.UUID
}

type GetLnurlWithdrawalResponse struct {
	ReqID            uuid.UUID
	MaxWithdrawable  int64
	DefaultMemo      string
	Error            *string
}

type PayLnurlWithdrawalRequest struct {
	ReqID          uuid.UUID
	PaymentRequest string
}

type PayLnurlWithdrawalResponse struct {
	ReqID uuid.UUID
	Error *string
}

// --- Dealer subprotocol -------------------------------------------------

type DealerHealth struct {
	Up                  bool
	AvailableCurrencies []money.Currency
}

type BankStateRequest struct{}

// BankState is the aggregated exposure snapshot the engine reports to
// the dealer after every materially relevant transition.
type BankState struct {
	InsuranceFundBalance money.Money
	BankLiabilities      []AccountBalance
	DealerAccounts       []AccountBalance
}

type DealerPayInvoice struct {
	PaymentRequest string
	AmountSats     int64
}

type DealerPayInsuranceInvoice struct {
	PaymentRequest string
	AmountSats     int64
}

type DealerCreateInvoiceRequest struct {
	ReqID    uuid.UUID
	AmountSats int64
	Memo     string
}

type DealerCreateInsuranceInvoiceRequest struct {
	ReqID      uuid.UUID
	AmountSats int64
	Memo       string
}

type DealerCreateInvoiceResponse struct {
	ReqID          uuid.UUID
	PaymentRequest string
}

// FiatDepositRequest asks the dealer for a BTC->fiat rate for a
// deposit that already settled on-chain/on-Lightning and now needs to
// cross into the customer's fiat account.
type FiatDepositRequest struct {
	ReqID                 uuid.UUID
	UID                   ledger.UserID
	Amount                money.Money
	TargetAccountCurrency money.Currency
}

// FiatDepositResponse carries the dealer's quote back; Error signals
// the dealer could not quote it and the deposit must be abandoned.
type FiatDepositResponse struct {
	ReqID                 uuid.UUID
	UID                   ledger.UserID
	Amount                money.Money
	TargetAccountCurrency money.Currency
	Rate                  *money.Rate
	Error                 *string
}

// --- Async pay-task rejoin ----------------------------------------------

// PaymentResult is posted back onto the dispatcher's internal channel
// once a spawned Lightning pay attempt completes.
type PaymentResult struct {
	ReqID          uuid.UUID
	UID            ledger.UserID
	Currency       money.Currency
	Amount         money.Money
	ReservedFee    money.Money
	PaymentRequest string
	PaymentHash    string
	Success        bool
	ActualFee      *money.Money
	Preimage       *string
	Rate           money.Rate
}

// Deposit signals that a Lightning payment settled on our node for a
// previously issued invoice.
type Deposit struct {
	PaymentRequest string
	Value          money.Money
}

// --- CLI::MakeTx ---------------------------------------------------------

// CliMakeTx is the operator-initiated booking path: a validated
// make_tx plus persistence, bypassing rate limits and customer-facing
// checks but still subject to the insurance-fund booking rule.
type CliMakeTx struct {
	ReqID          uuid.UUID
	OutboundUID    ledger.UserID
	OutboundAccount uuid.UUID
	InboundUID     ledger.UserID
	InboundAccount uuid.UUID
	Amount         money.Money
}

type CliMakeTxResult struct {
	ReqID uuid.UUID
	TxID  string
	Error *string
}
