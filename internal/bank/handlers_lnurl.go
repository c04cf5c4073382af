package bank

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bankengine/internal/ledger"
	"bankengine/pkg/money"
)

// handleCreateLnurlWithdrawal stashes a withdrawal template keyed by
// ReqID and hands the caller back an lnurl string to publish to a
// wallet. The template is consumed exactly once by the subsequent Get.
func (e *Engine) handleCreateLnurlWithdrawal(ctx context.Context, req CreateLnurlWithdrawalRequest, listener Listener) {
	if !e.withdrawalLimiter.Allow(req.UID) {
		errMsg := string(ErrPaymentRequestLimitExceeded)
		listener(CreateLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}

	if !req.Amount.Value.IsPositive() {
		errMsg := string(ErrInvalidAmount)
		listener(CreateLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}

	userAccount, ok := e.Ledger.LookupUser(req.UID)
	if !ok {
		errMsg := string(ErrUserAccountNotFound)
		listener(CreateLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}
	outbound := userAccount.GetDefaultAccount(req.Currency, nil)

	// Fiat currencies need a dealer rate before the balance check below
	// means anything; re-enter once the dealer has attached one.
	if req.Currency != money.BTC && req.Rate == nil {
		listener(req, Dealer)
		return
	}

	if outbound.Balance.LessThan(req.Amount.Value) {
		errMsg := string(ErrInsufficientFunds)
		listener(CreateLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}

	e.Lnurl.Put(req.ReqID.String(), LnurlTemplate{
		ReqID:    req.ReqID.String(),
		UID:      uint64(req.UID),
		Currency: req.Currency,
		Amount:   req.Amount,
		Rate:     req.Rate,
	})

	listener(CreateLnurlWithdrawalResponse{ReqID: req.ReqID, Lnurl: fmt.Sprintf("lnurlw://%s", req.ReqID)}, Api)
}

// handleGetLnurlWithdrawal is the wallet's second step: it fetches the
// withdrawal limits for the template and, because lnurl-withdraw
// templates are single-use, removes it from the store so a second Get
// against the same ReqID fails.
func (e *Engine) handleGetLnurlWithdrawal(ctx context.Context, req GetLnurlWithdrawalRequest, listener Listener) {
	tmpl, ok := e.Lnurl.TakeOnce(req.ReqID.String())
	if !ok {
		errMsg := "withdrawal request not found or already used"
		listener(GetLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}

	amountInBTC := tmpl.Amount
	if tmpl.Currency != money.BTC {
		if tmpl.Rate == nil {
			errMsg := "rate not available"
			listener(GetLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
			return
		}
		converted, err := tmpl.Amount.Exchange(*tmpl.Rate)
		if err != nil {
			errMsg := err.Error()
			listener(GetLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
			return
		}
		amountInBTC = converted
	}

	sats, err := amountInBTC.SatsRounded()
	if err != nil {
		errMsg := err.Error()
		listener(GetLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}

	listener(GetLnurlWithdrawalResponse{
		ReqID:           req.ReqID,
		MaxWithdrawable: sats * 1000,
		DefaultMemo:     "lnurl withdrawal",
	}, Api)
}

// handlePayLnurlWithdrawal is the wallet's third step: it supplies the
// BOLT-11 invoice to pay out, which loops back through the normal
// PaymentRequest path so it gets the same reservation, fee estimation,
// and async settlement handling as a customer-initiated withdrawal.
func (e *Engine) handlePayLnurlWithdrawal(ctx context.Context, req PayLnurlWithdrawalRequest, listener Listener) {
	tmpl, ok := e.Lnurl.TakeOnce(req.ReqID.String())
	if !ok {
		errMsg := "withdrawal request not found or already used"
		listener(PayLnurlWithdrawalResponse{ReqID: req.ReqID, Error: &errMsg}, Api)
		return
	}

	listener(PaymentRequest{
		ReqID:          uuid.New(),
		UID:            ledger.UserID(tmpl.UID),
		Currency:       tmpl.Currency,
		PaymentRequest: &req.PaymentRequest,
		Rate:           tmpl.Rate,
	}, Loopback)
}
