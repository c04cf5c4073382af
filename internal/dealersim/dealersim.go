// Package dealersim is a reference counterparty for local development
// and integration testing: it answers the bank engine's dealer
// subprotocol (quotes, swaps, fiat deposits, invoice rate attachment)
// using live market prices instead of a real hedging desk. It is not
// the production dealer — spec.md scopes that process out entirely —
// only a stand-in that lets the engine's dealer-facing handlers be
// exercised end to end without one.
package dealersim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bankengine/internal/bank"
	"bankengine/internal/exchange"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
	"bankengine/pkg/queue"
)

// Simulator answers dealer-subprotocol messages using a PriceProvider
// for BTC/fiat rates. A real dealer process would additionally hedge
// its own exposure; this one only quotes.
type Simulator struct {
	prices exchange.PriceProvider
}

// New builds a Simulator backed by prices.
func New(prices exchange.PriceProvider) *Simulator {
	return &Simulator{prices: prices}
}

// rate returns the BTC→fiat rate for currency, quoting 1 BTC = price
// units of currency.
func (s *Simulator) rate(ctx context.Context, currency money.Currency) (money.Rate, error) {
	if currency == money.BTC {
		return money.OneToOne(money.BTC), nil
	}
	price, err := s.prices.GetPrice(ctx, string(currency))
	if err != nil {
		return money.Rate{}, fmt.Errorf("dealersim: failed to price %s: %w", currency, err)
	}
	return money.Rate{Base: money.BTC, Quote: currency, Value: decimal.NewFromFloat(price)}, nil
}

// Handle answers one envelope read off the dealer stream, returning
// the response message(s) to publish back, if any.
func (s *Simulator) Handle(ctx context.Context, env queue.Envelope) ([]any, error) {
	switch env.Kind {
	case "QuoteRequest":
		var req bank.QuoteRequest
		if err := env.Decode(&req); err != nil {
			return nil, err
		}
		rate, err := s.quoteBetween(ctx, req.FromCurrency, req.ToCurrency)
		if err != nil {
			logger.Warn("dealersim: quote failed", zap.Error(err))
			return nil, nil
		}
		return []any{bank.QuoteResponse{ReqID: req.ReqID, Rate: rate}}, nil

	case "SwapRequest":
		var req bank.SwapRequest
		if err := env.Decode(&req); err != nil {
			return nil, err
		}
		rate, err := s.quoteBetween(ctx, req.FromCurrency, req.ToCurrency)
		if err != nil {
			errMsg := err.Error()
			return []any{bank.SwapResponse{ReqID: req.ReqID, UID: req.UID, FromCurrency: req.FromCurrency, ToCurrency: req.ToCurrency, Amount: req.Amount, OnchainPayoutAddress: req.OnchainPayoutAddress, Success: false, Error: &errMsg}}, nil
		}
		return []any{bank.SwapResponse{ReqID: req.ReqID, UID: req.UID, FromCurrency: req.FromCurrency, ToCurrency: req.ToCurrency, Amount: req.Amount, Rate: &rate, OnchainPayoutAddress: req.OnchainPayoutAddress, Success: true}}, nil

	case "FiatDepositRequest":
		var req bank.FiatDepositRequest
		if err := env.Decode(&req); err != nil {
			return nil, err
		}
		rate, err := s.rate(ctx, req.TargetAccountCurrency)
		if err != nil {
			errMsg := err.Error()
			return []any{bank.FiatDepositResponse{ReqID: req.ReqID, UID: req.UID, Amount: req.Amount, TargetAccountCurrency: req.TargetAccountCurrency, Error: &errMsg}}, nil
		}
		return []any{bank.FiatDepositResponse{ReqID: req.ReqID, UID: req.UID, Amount: req.Amount, TargetAccountCurrency: req.TargetAccountCurrency, Rate: &rate}}, nil

	case "InvoiceRequest":
		var req bank.InvoiceRequest
		if err := env.Decode(&req); err != nil {
			return nil, err
		}
		rate, err := s.rate(ctx, req.Currency)
		if err != nil {
			logger.Warn("dealersim: invoice rate failed", zap.Error(err))
			return nil, nil
		}
		req.Rate = &rate
		return []any{req}, nil

	case "BankStateRequest", "BankState":
		return nil, nil

	default:
		return nil, nil
	}
}

func (s *Simulator) quoteBetween(ctx context.Context, from, to money.Currency) (money.Rate, error) {
	fromRate, err := s.rate(ctx, from)
	if err != nil {
		return money.Rate{}, err
	}
	toRate, err := s.rate(ctx, to)
	if err != nil {
		return money.Rate{}, err
	}
	// fromRate.Value is fiat-per-BTC (or 1 for BTC); cross rate is
	// (1/fromRate)*toRate, i.e. how much `to` one unit of `from` buys.
	if fromRate.Value.IsZero() {
		return money.Rate{}, fmt.Errorf("dealersim: zero rate for %s", from)
	}
	return money.Rate{Base: from, Quote: to, Value: toRate.Value.Div(fromRate.Value)}, nil
}
