package bank

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bankengine/internal/ledger"
	"bankengine/internal/txlog"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
)

// handlePaymentRequest implements the withdrawal-intent flow: rate
// limit, account resolution, amount/invoice validation, the internal
// transfer short-circuit, the dealer quote round-trip for fiat
// outbound, self-payment/already-settled rejection, fee estimation,
// balance verification, and finally the reservation + pay-task spawn.
// A successful reservation never emits a response directly — the
// customer-visible success/failure is emitted by handlePaymentResult
// once the pay task rejoins.
func (e *Engine) handlePaymentRequest(ctx context.Context, req PaymentRequest, listener Listener) {
	if !e.withdrawalLimiter.Allow(req.UID) {
		resp := NewPaymentError(ErrPaymentRequestLimitExceeded, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	userAccount, ok := e.Ledger.LookupUser(req.UID)
	if !ok {
		resp := NewPaymentError(ErrUserAccountNotFound, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}
	outboundAccount := userAccount.GetDefaultAccount(req.Currency, nil)

	if e.isInsuranceFundDepleted() {
		logger.Warn("bank: insurance fund depleted, processing withdrawal anyway", zap.Uint64("uid", uint64(req.UID)))
	}

	if req.Amount != nil && !req.Amount.IsPositive() {
		resp := NewPaymentError(ErrInvalidAmount, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	if req.Recipient != nil {
		e.makeInternalTransfer(ctx, req, userAccount, outboundAccount, listener)
		return
	}

	if req.PaymentRequest == nil {
		resp := NewPaymentError(ErrInvalidInvoice, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	decoded, err := e.Driver.DecodeInvoice(ctx, *req.PaymentRequest)
	if err != nil {
		resp := NewPaymentError(ErrInvalidInvoice, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}
	if decoded.AmountMilliSats <= 0 {
		resp := NewPaymentError(ErrZeroAmountInvoice, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	amountInBTC := money.FromSats(decoded.AmountMilliSats / 1000)
	req.Amount = &amountInBTC

	if req.Currency != money.BTC && req.Rate == nil {
		listener(req, Dealer)
		return
	}

	rate := money.OneToOne(money.BTC)
	if req.Rate != nil {
		rate = *req.Rate
	}

	inv, existed, err := e.Invoices.GetByPaymentRequest(ctx, *req.PaymentRequest)
	if err != nil {
		resp := NewPaymentError(ErrPaymentDatabaseFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}
	if !existed {
		currency := req.Currency
		inv = Invoice{
			PaymentRequest: *req.PaymentRequest,
			PaymentHash:    decoded.PaymentHash,
			ValueSats:      decoded.AmountMilliSats / 1000,
			Currency:       &currency,
		}
		if err := e.Invoices.Insert(ctx, inv); err != nil {
			resp := NewPaymentError(ErrPaymentDatabaseFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
			listener(resp, Api)
			return
		}
	}

	if inv.Owner != nil {
		if ledger.UserID(*inv.Owner) == req.UID {
			logger.Info("bank: refusing self payment", zap.Uint64("uid", uint64(req.UID)))
			resp := NewPaymentError(ErrSelfPayment, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
			listener(resp, Api)
			return
		}
		if inv.Settled {
			resp := NewPaymentError(ErrInvoiceAlreadyPaid, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
			listener(resp, Api)
			return
		}
	}

	maxFeeInBTC := money.FromSatsDecimal(amountInBTC.Value.Shift(money.SatsDecimals).Mul(e.Config.LnNetworkFeeMargin))
	feeMargin, _ := e.Config.LnNetworkFeeMargin.Float64()

	estimatedFee := maxFeeInBTC
	if routes, err := e.Driver.Probe(ctx, *req.PaymentRequest, feeMargin); err == nil && len(routes) > 0 {
		estimatedFee = money.FromSats(routes[0].TotalFeeSats)
	}

	reservedInBTC := money.FromSatsDecimal(amountInBTC.Value.Shift(money.SatsDecimals).Add(mustSats(estimatedFee)))
	reservedInOutbound, err := reservedInBTC.Exchange(rate)
	if err != nil {
		resp := NewPaymentError(ErrExternalPaymentFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	if outboundAccount.Balance.LessThan(reservedInOutbound.Value) {
		resp := NewPaymentError(ErrInsufficientFundsForFees, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	liability := e.bankLiabilityAccount(money.BTC, ledger.External)

	var outboundTxID, inboundTxID string
	if req.Currency != money.BTC {
		dealerOutCurrency := e.dealerAccount(req.Currency, ledger.Internal)
		dealerBTC := e.dealerAccount(money.BTC, ledger.Internal)

		txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &outboundAccount, req.UID, &dealerOutCurrency, ledger.DealerUID, reservedInOutbound)
		if err != nil {
			logger.Error("bank: payment reservation leg A failed", zap.Error(err))
			resp := NewPaymentError(ErrExternalPaymentFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
			listener(resp, Api)
			return
		}
		outboundTxID = txid

		txid2, err := txlog.MakeTx(ctx, e.Store, e.Seq, &dealerBTC, ledger.DealerUID, &liability, ledger.BankUID, reservedInBTC)
		if err != nil {
			logger.Error("bank: payment reservation leg B failed", zap.Error(err))
			resp := NewPaymentError(ErrExternalPaymentFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
			listener(resp, Api)
			return
		}
		inboundTxID = txid2

		userAccount.Put(outboundAccount)
		e.putDealerAccount(dealerOutCurrency)
		e.putDealerAccount(dealerBTC)
		e.putBankLiability(liability)
	} else {
		txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &outboundAccount, req.UID, &liability, ledger.BankUID, reservedInBTC)
		if err != nil {
			logger.Error("bank: payment reservation failed", zap.Error(err))
			resp := NewPaymentError(ErrExternalPaymentFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
			listener(resp, Api)
			return
		}
		outboundTxID = txid
		userAccount.Put(outboundAccount)
		e.putBankLiability(liability)
	}

	if err := txlog.MakeSummaryTx(ctx, e.Store, outboundAccount, req.UID, liability, ledger.BankUID,
		reservedInOutbound, reservedInBTC, txlog.MakeSummaryTxParams{
			OutboundTxID: &outboundTxID, InboundTxID: nonEmptyPtr(inboundTxID), Rate: &rate, Reference: txlog.RefExternalPayment,
		}); err != nil {
		logger.Error("bank: payment reservation summary failed", zap.Error(err))
	}

	maxFeeSats, _ := mustSats(estimatedFee).Round(0).Float64()
	e.PayPool.Spawn(ctx, PayJob{
		ReqID:          req.ReqID,
		UID:            uint64(req.UID),
		Currency:       req.Currency,
		Amount:         amountInBTC,
		ReservedFee:    estimatedFee,
		PaymentRequest: *req.PaymentRequest,
		Rate:           rate,
		MaxFeeSats:     int64(maxFeeSats),
	}, e.Driver, e.Results)
}

// makeInternalTransfer implements §4.8: resolve the recipient by
// username, reject self-transfer explicitly (a deliberate
// strengthening of a silently-dropped case; see DESIGN.md), and book a
// single same-currency leg.
func (e *Engine) makeInternalTransfer(ctx context.Context, req PaymentRequest, userAccount *ledger.UserAccount, outboundAccount ledger.Account, listener Listener) {
	recipientUID, found, err := e.Users.ResolveUsername(ctx, *req.Recipient)
	if err != nil || !found {
		resp := NewPaymentError(ErrUserDoesNotExist, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	if recipientUID == req.UID {
		resp := NewPaymentError(ErrSelfPayment, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	amount := money.Zero(req.Currency)
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() {
		resp := NewPaymentError(ErrInvalidAmount, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	if outboundAccount.Balance.LessThan(amount.Value) {
		resp := NewPaymentError(ErrInsufficientFunds, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	recipientAccount := e.Ledger.GetOrCreateUser(recipientUID)
	inbound := recipientAccount.GetDefaultAccount(req.Currency, nil)

	txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &outboundAccount, req.UID, &inbound, recipientUID, amount)
	if err != nil {
		resp := NewPaymentError(ErrPaymentDatabaseFailed, req.ReqID, req.UID, req.PaymentRequest, req.Currency, req.Amount)
		listener(resp, Api)
		return
	}

	userAccount.Put(outboundAccount)
	recipientAccount.Put(inbound)

	if err := txlog.MakeSummaryTx(ctx, e.Store, outboundAccount, req.UID, inbound, recipientUID,
		amount, amount, txlog.MakeSummaryTxParams{OutboundTxID: &txid, Reference: txlog.RefInternalTransfer}); err != nil {
		logger.Error("bank: internal transfer summary failed", zap.Error(err))
	}

	zeroFee := money.Zero(req.Currency)
	oneToOne := money.OneToOne(req.Currency)
	listener(PaymentResponse{
		ReqID:          req.ReqID,
		UID:            req.UID,
		Success:        true,
		PaymentHash:    txid,
		PaymentRequest: req.PaymentRequest,
		Currency:       req.Currency,
		Amount:         &amount,
		Fees:           &zeroFee,
		Rate:           &oneToOne,
	}, Api)
}

// handlePaymentResult reconciles a completed Lightning pay attempt.
// Success sweeps any excess of reserved-vs-actual fee to the dealer's
// BTC account as revenue and marks the invoice settled; failure
// refunds the full reservation to the customer, mirroring the
// reservation's leg shape.
func (e *Engine) handlePaymentResult(ctx context.Context, result PaymentResult, listener Listener) {
	userAccount := e.Ledger.GetOrCreateUser(result.UID)
	outboundAccount := userAccount.GetDefaultAccount(result.Currency, nil)
	liability := e.bankLiabilityAccount(money.BTC, ledger.External)

	if result.Success {
		if err := e.Invoices.MarkSettled(ctx, result.PaymentRequest); err != nil {
			logger.Error("bank: failed to mark invoice settled", zap.Error(err))
		}

		if result.ActualFee != nil {
			excess, err := result.ReservedFee.Sub(*result.ActualFee)
			if err == nil && excess.IsPositive() {
				dealerBTC := e.dealerAccount(money.BTC, ledger.Internal)
				if _, err := txlog.MakeTx(ctx, e.Store, e.Seq, &liability, ledger.BankUID, &dealerBTC, ledger.DealerUID, excess); err != nil {
					logger.Error("bank: failed to sweep excess fee", zap.Error(err))
				} else {
					e.putBankLiability(liability)
					e.putDealerAccount(dealerBTC)
				}
			}
		}

		listener(PaymentResponse{
			ReqID:          result.ReqID,
			UID:            result.UID,
			Success:        true,
			PaymentHash:    result.PaymentHash,
			Preimage:       result.Preimage,
			PaymentRequest: &result.PaymentRequest,
			Currency:       result.Currency,
			Amount:         &result.Amount,
			Fees:           result.ActualFee,
			Rate:           &result.Rate,
		}, Api)
		return
	}

	// Failure: refund the full reservation.
	reservedInBTC, err := result.Amount.Add(result.ReservedFee)
	if err != nil {
		logger.Error("bank: failed to compute refund amount", zap.Error(err))
		return
	}

	if result.Currency != money.BTC {
		reservedInOutbound, err := reservedInBTC.Exchange(result.Rate)
		if err != nil {
			logger.Error("bank: failed to exchange refund amount", zap.Error(err))
			return
		}
		dealerBTC := e.dealerAccount(money.BTC, ledger.Internal)
		dealerOutCurrency := e.dealerAccount(result.Currency, ledger.Internal)

		if _, err := txlog.MakeTx(ctx, e.Store, e.Seq, &liability, ledger.BankUID, &dealerBTC, ledger.DealerUID, reservedInBTC); err != nil {
			logger.Error("bank: refund leg A failed", zap.Error(err))
			return
		}
		if _, err := txlog.MakeTx(ctx, e.Store, e.Seq, &dealerOutCurrency, ledger.DealerUID, &outboundAccount, result.UID, reservedInOutbound); err != nil {
			logger.Error("bank: refund leg B failed", zap.Error(err))
			return
		}
		e.putBankLiability(liability)
		e.putDealerAccount(dealerBTC)
		e.putDealerAccount(dealerOutCurrency)
		userAccount.Put(outboundAccount)

		_ = txlog.MakeSummaryTx(ctx, e.Store, liability, ledger.BankUID, outboundAccount, result.UID,
			reservedInBTC, reservedInOutbound, txlog.MakeSummaryTxParams{Rate: &result.Rate, Reference: txlog.RefPaymentRefund})
	} else {
		if _, err := txlog.MakeTx(ctx, e.Store, e.Seq, &liability, ledger.BankUID, &outboundAccount, result.UID, reservedInBTC); err != nil {
			logger.Error("bank: refund failed", zap.Error(err))
			return
		}
		e.putBankLiability(liability)
		userAccount.Put(outboundAccount)

		_ = txlog.MakeSummaryTx(ctx, e.Store, liability, ledger.BankUID, outboundAccount, result.UID,
			reservedInBTC, reservedInBTC, txlog.MakeSummaryTxParams{Rate: &result.Rate, Reference: txlog.RefPaymentRefund})
	}

	errKind := ErrExternalPaymentFailed
	listener(PaymentResponse{
		ReqID:          result.ReqID,
		UID:            result.UID,
		Success:        false,
		PaymentHash:    result.PaymentHash,
		PaymentRequest: &result.PaymentRequest,
		Currency:       result.Currency,
		Amount:         &result.Amount,
		Error:          &errKind,
	}, Api)

	listener(e.bankState(), Dealer)
}

func mustSats(m money.Money) decimal.Decimal {
	sats, err := m.Sats()
	if err != nil {
		return decimal.Zero
	}
	return sats
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
