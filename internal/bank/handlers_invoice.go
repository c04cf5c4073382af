package bank

import (
	"context"

	"go.uber.org/zap"

	"bankengine/internal/ledger"
	"bankengine/pkg/logger"
	"bankengine/pkg/money"
)

func invoiceError(req InvoiceRequest, err InvoiceResponseError) InvoiceResponse {
	return InvoiceResponse{
		ReqID:                 req.ReqID,
		UID:                   req.UID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		TargetAccountCurrency: req.TargetAccountCurrency,
		Meta:                  req.Meta,
		Metadata:              req.Metadata,
		Error:                 &err,
	}
}

// handleInvoiceRequest implements the deposit-intent flow: rate limit,
// insurance/withdrawal-only gates, target-account resolution, deposit
// limit enforcement, dealer round-trip for non-BTC currencies, and
// finally Lightning invoice creation.
func (e *Engine) handleInvoiceRequest(ctx context.Context, req InvoiceRequest, listener Listener) {
	if !e.depositLimiter.Allow(req.UID) {
		listener(invoiceError(req, ErrRequestLimitExceeded), Api)
		return
	}

	if e.isInsuranceFundDepleted() {
		logger.Warn("bank: insurance fund depleted, refusing invoice request", zap.Uint64("uid", uint64(req.UID)))
		listener(invoiceError(req, ErrInvoicingSuspended), Api)
		return
	}

	if e.Config.WithdrawalOnly {
		listener(invoiceError(req, ErrWithdrawalOnly), Api)
		return
	}

	userAccount := e.Ledger.GetOrCreateUser(req.UID)

	var target ledger.Account
	if req.AccountID != nil {
		acc, ok := userAccount.Get(*req.AccountID)
		if !ok {
			resp := invoiceError(req, ErrAccountDoesNotExist)
			listener(resp, Api)
			return
		}
		target = acc
	} else {
		target = userAccount.GetDefaultAccount(req.Currency, nil)
	}

	if !e.currencyWithinDepositLimit(target, req.Amount) {
		resp := invoiceError(req, ErrDepositLimitExceeded)
		resp.AccountID = &target.AccountID
		listener(resp, Api)
		return
	}

	// Fiat deposits need a BTC<->fiat quote from the dealer before we
	// can size the Lightning invoice; the dealer echoes the request
	// back as InvoiceResponse once it has attached a rate.
	if req.Currency != money.BTC {
		listener(req, Dealer)
		return
	}

	amountSats, err := req.Amount.SatsRounded()
	if err != nil {
		logger.Error("bank: failed to convert invoice amount to sats", zap.Error(err))
		resp := invoiceError(req, ErrLightningDriverFailed)
		resp.AccountID = &target.AccountID
		listener(resp, Api)
		return
	}

	inv, err := e.Driver.CreateInvoice(ctx, amountSats, req.Meta, uint64(req.UID), target.AccountID.String())
	if err != nil {
		logger.Error("bank: lightning driver failed to create invoice", zap.Error(err))
		resp := invoiceError(req, ErrLightningDriverFailed)
		resp.AccountID = &target.AccountID
		listener(resp, Api)
		return
	}

	currency := req.Currency
	inv.Currency = &currency
	inv.TargetAccountCurrency = req.TargetAccountCurrency

	if err := e.Invoices.Insert(ctx, inv); err != nil {
		logger.Error("bank: failed to persist invoice", zap.Error(err))
		resp := invoiceError(req, ErrDatabaseConnectionFailed)
		resp.AccountID = &target.AccountID
		listener(resp, Api)
		return
	}

	pr := inv.PaymentRequest
	listener(InvoiceResponse{
		ReqID:                 req.ReqID,
		UID:                   req.UID,
		Amount:                req.Amount,
		Currency:              req.Currency,
		TargetAccountCurrency: req.TargetAccountCurrency,
		AccountID:             &target.AccountID,
		PaymentRequest:        &pr,
		Meta:                  req.Meta,
		Metadata:              req.Metadata,
	}, Api)
}

// handleInvoiceResponse is the second half of a fiat deposit: the
// dealer has attached a rate, so we now know the BTC-sats equivalent
// and can create the actual Lightning invoice. The dealer's rate is
// BTC->fiat (Base=BTC, Quote=request currency), so the request's fiat
// amount is converted back to BTC by dividing rather than by Exchange.
func (e *Engine) handleInvoiceResponse(ctx context.Context, resp InvoiceResponse, listener Listener) {
	if resp.Rate == nil {
		errKind := ErrRateNotAvailable
		resp.Error = &errKind
		listener(resp, Api)
		return
	}

	amountInBTC := money.New(money.BTC, resp.Amount.Value.Div(resp.Rate.Value))

	userAccount := e.Ledger.GetOrCreateUser(resp.UID)
	var target ledger.Account
	if resp.AccountID != nil {
		acc, ok := userAccount.Get(*resp.AccountID)
		if !ok {
			errKind := ErrAccountDoesNotExist
			resp.Error = &errKind
			listener(resp, Api)
			return
		}
		target = acc
	} else {
		target = userAccount.GetDefaultAccount(money.BTC, nil)
	}

	if !e.currencyWithinDepositLimit(target, amountInBTC) {
		errKind := ErrDepositLimitExceeded
		resp.Error = &errKind
		resp.AccountID = &target.AccountID
		listener(resp, Api)
		return
	}

	amountSats, err := amountInBTC.SatsRounded()
	if err != nil {
		errKind := ErrLightningDriverFailed
		resp.Error = &errKind
		listener(resp, Api)
		return
	}

	inv, err := e.Driver.CreateInvoice(ctx, amountSats, "", uint64(resp.UID), target.AccountID.String())
	if err != nil {
		errKind := ErrLightningDriverFailed
		resp.Error = &errKind
		listener(resp, Api)
		return
	}

	currency := resp.Currency
	inv.Currency = &currency
	if err := e.Invoices.Insert(ctx, inv); err != nil {
		errKind := ErrDatabaseConnectionFailed
		resp.Error = &errKind
		listener(resp, Api)
		return
	}

	pr := inv.PaymentRequest
	resp.PaymentRequest = &pr
	resp.AccountID = &target.AccountID
	resp.Error = nil
	listener(resp, Api)
}
