package bank

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bankengine/internal/ledger"
	"bankengine/internal/ratelimit"
	"bankengine/internal/txlog"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
)

// Config holds the operator-tunable parameters spec.md's External
// Interfaces section names: per-currency deposit ceilings, the
// Lightning fee reservation margin, and the withdrawal-only kill
// switch.
type Config struct {
	DepositLimits      map[money.Currency]decimal.Decimal
	WithdrawalOnly     bool
	LnNetworkFeeMargin decimal.Decimal
	DepositRateLimit   RateLimitSettings
	WithdrawalRateLimit RateLimitSettings
	// BitcoinNetwork names the chain on-chain payout addresses are
	// validated against ("mainnet", "testnet", "regtest").
	BitcoinNetwork string
}

// RateLimitSettings mirrors the withdrawal/deposit
// "(request_limit, replenishment_interval_ms)" config pair.
type RateLimitSettings struct {
	RequestLimit          uint64
	ReplenishmentInterval time.Duration
}

// Engine is the single-writer dispatcher: it owns the ledger and every
// collaborator a handler needs (store, invoice/lnurl persistence, the
// Lightning driver) and exposes one entrypoint, Dispatch, that every
// caller must serialize through.
type Engine struct {
	Ledger   *ledger.Ledger
	Store    txlog.Store
	Seq      *txlog.Sequencer
	Invoices InvoiceStore
	Lnurl    LnurlStore
	Driver   Driver
	Config   Config
	Users    UserDirectory
	PayPool  PaySpawner
	Results  chan PaymentResult

	depositLimiter    *ratelimit.Limiter
	withdrawalLimiter *ratelimit.Limiter

	availableCurrencies map[money.Currency]bool
}

// UserDirectory resolves the username a customer supplies when
// addressing an internal transfer to its UserID.
type UserDirectory interface {
	ResolveUsername(ctx context.Context, username string) (ledger.UserID, bool, error)
}

// New wires an Engine from its collaborators. results is the bounded
// internal channel pay tasks rejoin through; the caller's transport
// loop is expected to drain it and call Dispatch with each value.
func New(l *ledger.Ledger, store txlog.Store, invoices InvoiceStore, lnurl LnurlStore, driver Driver, users UserDirectory, payPool PaySpawner, results chan PaymentResult, cfg Config) *Engine {
	return &Engine{
		Ledger:              l,
		Store:               store,
		Seq:                 &txlog.Sequencer{},
		Invoices:            invoices,
		Lnurl:               lnurl,
		Driver:              driver,
		Config:              cfg,
		Users:               users,
		PayPool:             payPool,
		Results:             results,
		depositLimiter:      ratelimit.New(cfg.DepositRateLimit.RequestLimit, cfg.DepositRateLimit.ReplenishmentInterval),
		withdrawalLimiter:   ratelimit.New(cfg.WithdrawalRateLimit.RequestLimit, cfg.WithdrawalRateLimit.ReplenishmentInterval),
		availableCurrencies: map[money.Currency]bool{money.BTC: true},
	}
}

// Dispatch routes one inbound message to its handler. All balance
// mutation happens synchronously inside this call; the only
// concurrency this package introduces is the detached pay tasks in
// package paytask, which rejoin by constructing a PaymentResult and
// calling Dispatch again from the dispatcher's own goroutine.
//
// Unknown message types are ignored, matching the message bus's
// forward-compatibility contract: an operator rolling out a new
// message kind to one side of the bus must not crash the other.
func (e *Engine) Dispatch(ctx context.Context, msg any, listener Listener) {
	switch m := msg.(type) {
	case InvoiceRequest:
		e.handleInvoiceRequest(ctx, m, listener)
	case InvoiceResponse:
		e.handleInvoiceResponse(ctx, m, listener)
	case Deposit:
		e.handleDeposit(ctx, m, listener)
	case FiatDepositResponse:
		e.handleFiatDepositResponse(ctx, m, listener)
	case PaymentRequest:
		e.handlePaymentRequest(ctx, m, listener)
	case PaymentResult:
		e.handlePaymentResult(ctx, m, listener)
	case SwapRequest:
		e.handleSwapRequest(ctx, m, listener)
	case SwapResponse:
		e.handleSwapResponse(ctx, m, listener)
	case CreateLnurlWithdrawalRequest:
		e.handleCreateLnurlWithdrawal(ctx, m, listener)
	case GetLnurlWithdrawalRequest:
		e.handleGetLnurlWithdrawal(ctx, m, listener)
	case PayLnurlWithdrawalRequest:
		e.handlePayLnurlWithdrawal(ctx, m, listener)
	case DealerHealth:
		e.handleDealerHealth(m)
	case BankStateRequest:
		listener(e.bankState(), Dealer)
	case DealerPayInvoice:
		e.handleDealerPayInvoice(ctx, m, listener, false)
	case DealerPayInsuranceInvoice:
		e.handleDealerPayInvoice(ctx, m.toPayInvoice(), listener, true)
	case DealerCreateInvoiceRequest:
		m.Memo = "KolliderSettlement"
		e.handleDealerCreateInvoice(ctx, m, listener)
	case DealerCreateInsuranceInvoiceRequest:
		req := DealerCreateInvoiceRequest{ReqID: m.ReqID, AmountSats: m.AmountSats, Memo: "ExternalDeposit"}
		e.handleDealerCreateInvoice(ctx, req, listener)
	case FiatDepositRequest:
		// Forwarded verbatim to the dealer.
		listener(m, Dealer)
	case CliMakeTx:
		e.handleCliMakeTx(ctx, m, listener)
	case GetBalancesRequest:
		listener(e.balances(m.UID), Api)
	case QuoteRequest:
		listener(m, Dealer)
	case AvailableCurrenciesRequest:
		listener(e.availableCurrenciesResponse(), Api)
	case GetNodeInfoRequest, QueryRouteRequest:
		// Accepted and dropped: the engine produces no response for
		// these, and cmd/bank's transport does not decode them.
	default:
		logger.Warn("bank: ignoring unrecognized message", zap.Any("type", m))
	}
}

func (e *Engine) availableCurrenciesResponse() AvailableCurrenciesResponse {
	out := AvailableCurrenciesResponse{}
	for c, ok := range e.availableCurrencies {
		if ok {
			out.Currencies = append(out.Currencies, c)
		}
	}
	return out
}

// toPayInvoice adapts the insurance-invoice variant onto the shared
// handler; both carry the same payload, only the booking differs.
func (m DealerPayInsuranceInvoice) toPayInvoice() DealerPayInvoice {
	return DealerPayInvoice{PaymentRequest: m.PaymentRequest, AmountSats: m.AmountSats}
}

func (e *Engine) isInsuranceFundDepleted() bool {
	return e.Ledger.IsInsuranceFundDepleted()
}

func (e *Engine) balances(uid ledger.UserID) Balances {
	ua, ok := e.Ledger.LookupUser(uid)
	if !ok {
		return Balances{UID: uid}
	}
	out := Balances{UID: uid}
	for _, acc := range ua.Accounts {
		out.Accounts = append(out.Accounts, AccountBalance{
			AccountID: acc.AccountID,
			Currency:  acc.Currency,
			Balance:   acc.Money(),
		})
	}
	return out
}

func (e *Engine) bankState() BankState {
	state := BankState{InsuranceFundBalance: e.Ledger.InsuranceFund.Money()}
	for _, acc := range e.Ledger.BankLiabilities.Accounts {
		state.BankLiabilities = append(state.BankLiabilities, AccountBalance{AccountID: acc.AccountID, Currency: acc.Currency, Balance: acc.Money()})
	}
	for _, acc := range e.Ledger.DealerAccounts.Accounts {
		state.DealerAccounts = append(state.DealerAccounts, AccountBalance{AccountID: acc.AccountID, Currency: acc.Currency, Balance: acc.Money()})
	}
	return state
}
