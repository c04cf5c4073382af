package bank

import (
	"context"

	"go.uber.org/zap"

	"bankengine/internal/ledger"
	"bankengine/internal/txlog"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
)

// handleDeposit fires when a Lightning payment settles on our node for
// a previously issued invoice. A miss (no matching invoice) is a
// silent no-op — the invoice lookup is the sole gate.
func (e *Engine) handleDeposit(ctx context.Context, dep Deposit, listener Listener) {
	inv, ok, err := e.Invoices.GetByPaymentRequest(ctx, dep.PaymentRequest)
	if err != nil || !ok {
		logger.Warn("bank: deposit settled for unknown invoice", zap.String("payment_request", dep.PaymentRequest))
		return
	}

	if inv.UID != nil && ledger.UserID(*inv.UID) == ledger.DealerUID {
		e.handleDealerDeposit(ctx, inv, dep, listener)
		return
	}

	currency := money.BTC
	if inv.Currency != nil {
		currency = *inv.Currency
	}

	// A fiat-targeted deposit needs the dealer's rate before it can be
	// booked into the customer's fiat account.
	if currency != money.BTC {
		uid := ledger.UserID(0)
		if inv.UID != nil {
			uid = ledger.UserID(*inv.UID)
		}
		listener(FiatDepositRequest{
			UID:                   uid,
			Amount:                dep.Value,
			TargetAccountCurrency: currency,
		}, Dealer)
		return
	}

	uid := ledger.UserID(0)
	if inv.UID != nil {
		uid = ledger.UserID(*inv.UID)
	}

	userAccount := e.Ledger.GetOrCreateUser(uid)
	customerAccount := userAccount.GetDefaultAccount(money.BTC, nil)
	liability := e.bankLiabilityAccount(money.BTC, ledger.External)

	txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &liability, ledger.BankUID, &customerAccount, uid, dep.Value)
	if err != nil {
		logger.Error("bank: failed to book btc deposit", zap.Error(err))
		return
	}

	userAccount.Put(customerAccount)
	e.putBankLiability(liability)

	if err := txlog.MakeSummaryTx(ctx, e.Store, liability, ledger.BankUID, customerAccount, uid,
		dep.Value, dep.Value, txlog.MakeSummaryTxParams{OutboundTxID: &txid, Reference: txlog.RefExternalDeposit}); err != nil {
		logger.Error("bank: failed to append deposit summary", zap.Error(err))
		return
	}

	listener(e.bankState(), Dealer)
}

// handleDealerDeposit books a settlement of an invoice owned by the
// dealer identity. The invoice's memo (stashed as Reference) decides
// whether this is an internal top-up from the dealer's own external
// wallet or the dealer settling a customer-triggered hedge.
func (e *Engine) handleDealerDeposit(ctx context.Context, inv Invoice, dep Deposit, listener Listener) {
	if inv.Reference == nil {
		logger.Warn("bank: dealer deposit with no reference, ignoring", zap.String("payment_request", dep.PaymentRequest))
		return
	}

	switch *inv.Reference {
	case "KolliderSettlement":
		dealerExternal := e.dealerAccount(money.BTC, ledger.External)
		dealerInternal := e.dealerAccount(money.BTC, ledger.Internal)
		txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &dealerExternal, ledger.DealerUID, &dealerInternal, ledger.DealerUID, dep.Value)
		if err != nil {
			logger.Error("bank: failed to book dealer settlement", zap.Error(err))
			return
		}
		e.putDealerAccount(dealerExternal)
		e.putDealerAccount(dealerInternal)
		_ = txlog.MakeSummaryTx(ctx, e.Store, dealerExternal, ledger.DealerUID, dealerInternal, ledger.DealerUID,
			dep.Value, dep.Value, txlog.MakeSummaryTxParams{OutboundTxID: &txid, Reference: "KolliderSettlement"})
	case "ExternalDeposit":
		liability := e.bankLiabilityAccount(money.BTC, ledger.External)
		dealerInternal := e.dealerAccount(money.BTC, ledger.Internal)
		txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &liability, ledger.BankUID, &dealerInternal, ledger.DealerUID, dep.Value)
		if err != nil {
			logger.Error("bank: failed to book dealer external deposit", zap.Error(err))
			return
		}
		e.putBankLiability(liability)
		e.putDealerAccount(dealerInternal)
		_ = txlog.MakeSummaryTx(ctx, e.Store, liability, ledger.BankUID, dealerInternal, ledger.DealerUID,
			dep.Value, dep.Value, txlog.MakeSummaryTxParams{OutboundTxID: &txid, Reference: txlog.RefExternalDeposit})
	default:
		logger.Warn("bank: unknown dealer deposit reference, ignoring", zap.String("reference", *inv.Reference))
	}

	listener(e.bankState(), Dealer)
}

// handleFiatDepositResponse books the two legs of a fiat-crossing
// deposit once the dealer has attached a rate: bank-liability BTC ->
// dealer BTC (the dealer now holds the BTC), then dealer fiat ->
// customer fiat (the customer now holds the fiat).
func (e *Engine) handleFiatDepositResponse(ctx context.Context, resp FiatDepositResponse, listener Listener) {
	if resp.Error != nil || resp.Rate == nil {
		logger.Warn("bank: fiat deposit quote failed, dropping deposit", zap.Uint64("uid", uint64(resp.UID)))
		return
	}

	fiatValue, err := resp.Amount.Exchange(*resp.Rate)
	if err != nil {
		logger.Error("bank: fiat deposit rate exchange failed", zap.Error(err))
		return
	}

	userAccount := e.Ledger.GetOrCreateUser(resp.UID)
	customerFiat := userAccount.GetDefaultAccount(resp.TargetAccountCurrency, nil)
	dealerFiat := e.dealerAccount(resp.TargetAccountCurrency, ledger.Internal)
	dealerBTC := e.dealerAccount(money.BTC, ledger.Internal)
	liability := e.bankLiabilityAccount(money.BTC, ledger.External)

	legATxID, err := txlog.MakeTx(ctx, e.Store, e.Seq, &liability, ledger.BankUID, &dealerBTC, ledger.DealerUID, resp.Amount)
	if err != nil {
		logger.Error("bank: fiat deposit leg A failed", zap.Error(err))
		return
	}

	legBTxID, err := txlog.MakeTx(ctx, e.Store, e.Seq, &dealerFiat, ledger.DealerUID, &customerFiat, resp.UID, fiatValue)
	if err != nil {
		logger.Error("bank: fiat deposit leg B failed", zap.Error(err))
		return
	}

	userAccount.Put(customerFiat)
	e.putDealerAccount(dealerFiat)
	e.putDealerAccount(dealerBTC)
	e.putBankLiability(liability)

	listener(e.bankState(), Dealer)

	if err := txlog.MakeSummaryTx(ctx, e.Store, liability, ledger.BankUID, customerFiat, resp.UID,
		resp.Amount, fiatValue, txlog.MakeSummaryTxParams{
			OutboundTxID: &legATxID, InboundTxID: &legBTxID, Rate: resp.Rate, Reference: txlog.RefExternalDeposit,
		}); err != nil {
		logger.Error("bank: fiat deposit summary failed", zap.Error(err))
	}
}
