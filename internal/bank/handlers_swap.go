package bank

import (
	"context"

	"go.uber.org/zap"

	"bankengine/internal/ledger"
	"bankengine/internal/txlog"
	"bankengine/internal/wallet"
	"bankengine/pkg/logger"
)

// handleSwapRequest forwards a swap intent to the dealer for a quote;
// the engine never prices a swap itself. An on-chain payout address is
// validated up front so a malformed address never makes it as far as
// a dealer round trip.
func (e *Engine) handleSwapRequest(ctx context.Context, req SwapRequest, listener Listener) {
	if e.isInsuranceFundDepleted() {
		logger.Warn("bank: insurance fund depleted, refusing swap request", zap.Uint64("uid", uint64(req.UID)))
		return
	}

	if req.OnchainPayoutAddress != nil {
		valid, err := wallet.ValidateAddress(*req.OnchainPayoutAddress, e.Config.BitcoinNetwork)
		if err != nil || !valid {
			errMsg := "invalid onchain payout address"
			listener(SwapResponse{ReqID: req.ReqID, UID: req.UID, FromCurrency: req.FromCurrency, ToCurrency: req.ToCurrency, Amount: req.Amount, Success: false, Error: &errMsg}, Api)
			return
		}
	}
	listener(req, Dealer)
}

// handleSwapResponse settles a swap the dealer has quoted: it books
// fromCurrency out of the customer's account and toCurrency in, both
// legs against the dealer's own accounts, and reports the dealer's
// updated exposure.
func (e *Engine) handleSwapResponse(ctx context.Context, resp SwapResponse, listener Listener) {
	if !resp.Success || resp.Rate == nil {
		errMsg := "swap not quoted"
		if resp.Error != nil {
			errMsg = *resp.Error
		}
		listener(SwapResponse{ReqID: resp.ReqID, UID: resp.UID, FromCurrency: resp.FromCurrency, ToCurrency: resp.ToCurrency, Amount: resp.Amount, Success: false, Error: &errMsg}, Api)
		return
	}

	if !e.availableCurrencies[resp.ToCurrency] {
		errMsg := string(ErrCurrencyNotAvailable)
		listener(SwapResponse{ReqID: resp.ReqID, UID: resp.UID, FromCurrency: resp.FromCurrency, ToCurrency: resp.ToCurrency, Amount: resp.Amount, Success: false, Error: &errMsg}, Api)
		return
	}

	userAccount := e.Ledger.GetOrCreateUser(resp.UID)
	fromAccount := userAccount.GetDefaultAccount(resp.FromCurrency, nil)

	if fromAccount.Balance.LessThan(resp.Amount.Value) {
		errMsg := "insufficient funds"
		listener(SwapResponse{ReqID: resp.ReqID, UID: resp.UID, FromCurrency: resp.FromCurrency, ToCurrency: resp.ToCurrency, Amount: resp.Amount, Success: false, Error: &errMsg}, Api)
		return
	}

	toAmount, err := resp.Amount.Exchange(*resp.Rate)
	if err != nil {
		logger.Error("bank: swap exchange failed", zap.Error(err))
		errMsg := err.Error()
		listener(SwapResponse{ReqID: resp.ReqID, UID: resp.UID, FromCurrency: resp.FromCurrency, ToCurrency: resp.ToCurrency, Amount: resp.Amount, Success: false, Error: &errMsg}, Api)
		return
	}
	toAccount := userAccount.GetDefaultAccount(resp.ToCurrency, nil)

	dealerFrom := e.dealerAccount(resp.FromCurrency, ledger.Internal)
	dealerTo := e.dealerAccount(resp.ToCurrency, ledger.Internal)

	legA, err := txlog.MakeTx(ctx, e.Store, e.Seq, &fromAccount, resp.UID, &dealerFrom, ledger.DealerUID, resp.Amount)
	if err != nil {
		logger.Error("bank: swap leg A failed", zap.Error(err))
		return
	}
	legB, err := txlog.MakeTx(ctx, e.Store, e.Seq, &dealerTo, ledger.DealerUID, &toAccount, resp.UID, toAmount)
	if err != nil {
		logger.Error("bank: swap leg B failed", zap.Error(err))
		return
	}

	userAccount.Put(fromAccount)
	userAccount.Put(toAccount)
	e.putDealerAccount(dealerFrom)
	e.putDealerAccount(dealerTo)

	if err := txlog.MakeSummaryTx(ctx, e.Store, fromAccount, resp.UID, toAccount, resp.UID,
		resp.Amount, toAmount, txlog.MakeSummaryTxParams{
			OutboundTxID: &legA, InboundTxID: &legB, Rate: resp.Rate, Reference: txlog.RefSwap,
		}); err != nil {
		logger.Error("bank: swap summary failed", zap.Error(err))
	}

	listener(e.bankState(), Dealer)
	listener(SwapResponse{ReqID: resp.ReqID, UID: resp.UID, FromCurrency: resp.FromCurrency, ToCurrency: resp.ToCurrency, Amount: toAmount, Rate: resp.Rate, OnchainPayoutAddress: resp.OnchainPayoutAddress, Success: true}, Api)
}
