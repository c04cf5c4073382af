package bank

import (
	"context"

	"go.uber.org/zap"

	"bankengine/internal/ledger"
	"bankengine/internal/txlog"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
)

// handleDealerHealth tracks which currencies the dealer is currently
// able to quote, gating InvoiceRequest/SwapRequest forwarding for
// currencies it has stopped quoting. A Down report, or an insurance
// fund that reads depleted, empties the set.
func (e *Engine) handleDealerHealth(h DealerHealth) {
	if !h.Up || e.isInsuranceFundDepleted() {
		logger.Warn("bank: dealer unhealthy or insurance fund depleted, clearing available currencies")
		e.availableCurrencies = map[money.Currency]bool{}
		return
	}
	next := map[money.Currency]bool{money.BTC: true}
	for _, c := range h.AvailableCurrencies {
		next[c] = true
	}
	e.availableCurrencies = next
}

// handleDealerPayInvoice pays a BOLT-11 invoice out of the dealer's
// own Lightning balance rather than a customer's, then books the
// matching leg: an ordinary settlement moves dealer Internal BTC to
// dealer External BTC (the dealer's own wallet paid out), while an
// insurance-fund top-up moves dealer Internal BTC to bank-liabilities
// External BTC (the platform's external exposure shrinks because the
// dealer just settled it on our behalf).
func (e *Engine) handleDealerPayInvoice(ctx context.Context, req DealerPayInvoice, listener Listener, insurance bool) {
	result, err := e.Driver.PayInvoice(ctx, req.PaymentRequest, 0)
	if err != nil || !result.Success {
		logger.Error("bank: dealer-originated payment failed", zap.String("payment_request", req.PaymentRequest), zap.Error(err))
		return
	}

	amount := money.FromSats(req.AmountSats)
	outbound := e.dealerAccount(money.BTC, ledger.Internal)

	if insurance {
		inbound := e.bankLiabilityAccount(money.BTC, ledger.External)
		if _, err := txlog.MakeTx(ctx, e.Store, e.Seq, &outbound, ledger.DealerUID, &inbound, ledger.BankUID, amount); err != nil {
			logger.Error("bank: failed to book insurance invoice settlement", zap.Error(err))
			return
		}
		e.putDealerAccount(outbound)
		e.putBankLiability(inbound)
		return
	}

	inbound := e.dealerAccount(money.BTC, ledger.External)
	if _, err := txlog.MakeTx(ctx, e.Store, e.Seq, &outbound, ledger.DealerUID, &inbound, ledger.DealerUID, amount); err != nil {
		logger.Error("bank: failed to book dealer invoice settlement", zap.Error(err))
		return
	}
	e.putDealerAccount(outbound)
	e.putDealerAccount(inbound)
}

// handleDealerCreateInvoice issues a Lightning invoice against our own
// node on the dealer's behalf, tagging it with memo so a later Deposit
// for the same payment_request can be routed by handleDealerDeposit.
func (e *Engine) handleDealerCreateInvoice(ctx context.Context, req DealerCreateInvoiceRequest, listener Listener) {
	inv, err := e.Driver.CreateInvoice(ctx, req.AmountSats, req.Memo, uint64(ledger.DealerUID), "")
	if err != nil {
		logger.Error("bank: dealer invoice creation failed", zap.Error(err))
		return
	}

	ref := req.Memo
	owner := uint64(ledger.DealerUID)
	currency := money.BTC
	inv.Owner = &owner
	inv.UID = &owner
	inv.Currency = &currency
	inv.Reference = &ref

	if err := e.Invoices.Insert(ctx, inv); err != nil {
		logger.Error("bank: dealer invoice persistence failed", zap.Error(err))
		return
	}

	listener(DealerCreateInvoiceResponse{ReqID: req.ReqID, PaymentRequest: inv.PaymentRequest}, Dealer)
}
