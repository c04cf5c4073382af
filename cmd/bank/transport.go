package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bankengine/internal/bank"
	"bankengine/pkg/logger"
	"bankengine/pkg/queue"
)

const (
	streamAPI    = "bank.api"
	streamDealer = "bank.dealer"
	groupBank    = "bank-engine"
	consumerName = "bank-engine-1"
)

// transport bridges the dispatcher's in-process (message, Destination)
// contract onto the two Redis streams it's reachable from: the API
// process publishes onto streamAPI, the dealer process onto
// streamDealer, and outbound messages are routed back onto whichever
// stream their Destination names. Loopback messages never touch
// Redis — they re-enter Dispatch directly from the same goroutine.
type transport struct {
	engine *bank.Engine
	queue  *queue.StreamQueue
}

func newTransport(engine *bank.Engine, sq *queue.StreamQueue) *transport {
	return &transport{engine: engine, queue: sq}
}

func (t *transport) listener(ctx context.Context) bank.Listener {
	return func(msg any, dest bank.Destination) {
		switch dest {
		case bank.Loopback:
			t.engine.Dispatch(ctx, msg, t.listener(ctx))
			return
		case bank.Api:
			t.publish(ctx, streamAPI, msg)
		case bank.Dealer:
			t.publish(ctx, streamDealer, msg)
		}
	}
}

func (t *transport) publish(ctx context.Context, stream string, msg any) {
	kind := kindOf(msg)
	env, err := queue.NewEnvelope(kind, msg)
	if err != nil {
		logger.Error("transport: failed to build envelope", zap.String("kind", kind), zap.Error(err))
		return
	}
	data, err := env.ToJSON()
	if err != nil {
		logger.Error("transport: failed to serialize envelope", zap.String("kind", kind), zap.Error(err))
		return
	}
	if _, err := t.queue.Publish(ctx, stream, data); err != nil {
		logger.Error("transport: failed to publish", zap.String("stream", stream), zap.String("kind", kind), zap.Error(err))
	}
}

// consume declares both consumer groups and blocks draining them
// round-robin via the underlying library's own blocking read loop —
// one goroutine per stream, both feeding the same single-writer
// engine through Dispatch.
func (t *transport) consume(ctx context.Context) error {
	if err := t.queue.DeclareStream(ctx, streamAPI, groupBank); err != nil {
		return fmt.Errorf("failed to declare %s stream: %w", streamAPI, err)
	}
	if err := t.queue.DeclareStream(ctx, streamDealer, groupBank); err != nil {
		return fmt.Errorf("failed to declare %s stream: %w", streamDealer, err)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- t.queue.Consume(ctx, streamAPI, groupBank, consumerName, t.handle)
	}()
	go func() {
		errCh <- t.queue.Consume(ctx, streamDealer, groupBank, consumerName, t.handle)
	}()

	return <-errCh
}

func (t *transport) handle(messageID string, data []byte) error {
	ctx := context.Background()
	env, err := queue.FromJSON(data)
	if err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}

	msg, err := decodeByKind(env)
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", env.Kind, err)
	}

	t.engine.Dispatch(ctx, msg, t.listener(ctx))
	return nil
}

// drainResults feeds completed pay-task outcomes back into the
// dispatcher from the engine's own goroutine, matching the "pay tasks
// rejoin by calling Dispatch again" contract.
func (t *transport) drainResults(ctx context.Context, results <-chan bank.PaymentResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			t.engine.Dispatch(ctx, res, t.listener(ctx))
		}
	}
}

func kindOf(msg any) string {
	switch msg.(type) {
	case bank.InvoiceResponse:
		return "InvoiceResponse"
	case bank.InvoiceRequest:
		return "InvoiceRequest"
	case bank.PaymentResponse:
		return "PaymentResponse"
	case bank.SwapRequest:
		return "SwapRequest"
	case bank.SwapResponse:
		return "SwapResponse"
	case bank.Balances:
		return "Balances"
	case bank.QuoteRequest:
		return "QuoteRequest"
	case bank.QuoteResponse:
		return "QuoteResponse"
	case bank.AvailableCurrenciesResponse:
		return "AvailableCurrenciesResponse"
	case bank.CreateLnurlWithdrawalResponse:
		return "CreateLnurlWithdrawalResponse"
	case bank.GetLnurlWithdrawalResponse:
		return "GetLnurlWithdrawalResponse"
	case bank.PayLnurlWithdrawalResponse:
		return "PayLnurlWithdrawalResponse"
	case bank.BankState:
		return "BankState"
	case bank.BankStateRequest:
		return "BankStateRequest"
	case bank.DealerPayInvoice:
		return "DealerPayInvoice"
	case bank.DealerPayInsuranceInvoice:
		return "DealerPayInsuranceInvoice"
	case bank.DealerCreateInvoiceRequest:
		return "DealerCreateInvoiceRequest"
	case bank.DealerCreateInsuranceInvoiceRequest:
		return "DealerCreateInsuranceInvoiceRequest"
	case bank.DealerCreateInvoiceResponse:
		return "DealerCreateInvoiceResponse"
	case bank.FiatDepositRequest:
		return "FiatDepositRequest"
	case bank.FiatDepositResponse:
		return "FiatDepositResponse"
	case bank.CliMakeTxResult:
		return "CliMakeTxResult"
	default:
		return fmt.Sprintf("%T", msg)
	}
}

func decodeByKind(env queue.Envelope) (any, error) {
	switch env.Kind {
	case "InvoiceRequest":
		var m bank.InvoiceRequest
		return m, env.Decode(&m)
	case "Deposit":
		var m bank.Deposit
		return m, env.Decode(&m)
	case "FiatDepositResponse":
		var m bank.FiatDepositResponse
		return m, env.Decode(&m)
	case "PaymentRequest":
		var m bank.PaymentRequest
		return m, env.Decode(&m)
	case "SwapRequest":
		var m bank.SwapRequest
		return m, env.Decode(&m)
	case "SwapResponse":
		var m bank.SwapResponse
		return m, env.Decode(&m)
	case "CreateLnurlWithdrawalRequest":
		var m bank.CreateLnurlWithdrawalRequest
		return m, env.Decode(&m)
	case "GetLnurlWithdrawalRequest":
		var m bank.GetLnurlWithdrawalRequest
		return m, env.Decode(&m)
	case "PayLnurlWithdrawalRequest":
		var m bank.PayLnurlWithdrawalRequest
		return m, env.Decode(&m)
	case "DealerHealth":
		var m bank.DealerHealth
		return m, env.Decode(&m)
	case "BankStateRequest":
		var m bank.BankStateRequest
		return m, env.Decode(&m)
	case "DealerPayInvoice":
		var m bank.DealerPayInvoice
		return m, env.Decode(&m)
	case "DealerPayInsuranceInvoice":
		var m bank.DealerPayInsuranceInvoice
		return m, env.Decode(&m)
	case "DealerCreateInvoiceRequest":
		var m bank.DealerCreateInvoiceRequest
		return m, env.Decode(&m)
	case "DealerCreateInsuranceInvoiceRequest":
		var m bank.DealerCreateInsuranceInvoiceRequest
		return m, env.Decode(&m)
	case "FiatDepositRequest":
		var m bank.FiatDepositRequest
		return m, env.Decode(&m)
	case "CliMakeTx":
		var m bank.CliMakeTx
		return m, env.Decode(&m)
	case "GetBalancesRequest":
		var m bank.GetBalancesRequest
		return m, env.Decode(&m)
	case "QuoteRequest":
		var m bank.QuoteRequest
		return m, env.Decode(&m)
	case "AvailableCurrenciesRequest":
		var m bank.AvailableCurrenciesRequest
		return m, env.Decode(&m)
	default:
		return nil, fmt.Errorf("unrecognized message kind %q", env.Kind)
	}
}
