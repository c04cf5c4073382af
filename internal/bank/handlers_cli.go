package bank

import (
	"context"

	"github.com/google/uuid"

	"bankengine/internal/ledger"
	"bankengine/internal/txlog"
)

// handleCliMakeTx is the operator-initiated booking path: it skips
// rate limiting and customer-facing checks, but still enforces that
// any leg touching the insurance fund account is balanced against a
// bank-liability External account, and that both endpoints share a
// currency and are distinct accounts.
func (e *Engine) handleCliMakeTx(ctx context.Context, req CliMakeTx, listener Listener) {
	cliErr := func(msg string) {
		errMsg := msg
		listener(CliMakeTxResult{ReqID: req.ReqID, Error: &errMsg}, Api)
	}

	if !req.Amount.IsPositive() {
		cliErr("amount must be positive")
		return
	}
	if req.OutboundUID == req.InboundUID && req.OutboundAccount == req.InboundAccount {
		cliErr("outbound and inbound endpoints must differ")
		return
	}

	out, outOwner, ok := e.resolveCliAccount(req.OutboundUID, req.OutboundAccount)
	if !ok {
		cliErr("outbound account not found")
		return
	}
	in, inOwner, ok := e.resolveCliAccount(req.InboundUID, req.InboundAccount)
	if !ok {
		cliErr("inbound account not found")
		return
	}

	touchesInsuranceFund := out.AccountID == e.Ledger.InsuranceFund.AccountID || in.AccountID == e.Ledger.InsuranceFund.AccountID
	if touchesInsuranceFund {
		otherIsBankLiabilityExternal := (out.AccountID == e.Ledger.InsuranceFund.AccountID && in.Type == ledger.External && req.InboundUID == ledger.BankUID) ||
			(in.AccountID == e.Ledger.InsuranceFund.AccountID && out.Type == ledger.External && req.OutboundUID == ledger.BankUID)
		if !otherIsBankLiabilityExternal {
			cliErr("insurance fund may only be booked against a bank-liability external account")
			return
		}
	}

	txid, err := txlog.MakeTx(ctx, e.Store, e.Seq, &out, req.OutboundUID, &in, req.InboundUID, req.Amount)
	if err != nil {
		cliErr(err.Error())
		return
	}

	e.putCliAccount(req.OutboundUID, out, outOwner)
	e.putCliAccount(req.InboundUID, in, inOwner)

	listener(CliMakeTxResult{ReqID: req.ReqID, TxID: txid}, Api)
}

// resolveCliAccount looks an account up regardless of whether it
// belongs to a customer, the dealer, the bank-liability set, or the
// insurance fund singleton.
func (e *Engine) resolveCliAccount(uid ledger.UserID, accountID uuid.UUID) (ledger.Account, *ledger.UserAccount, bool) {
	if e.Ledger.InsuranceFund.AccountID == accountID {
		return e.Ledger.InsuranceFund, nil, true
	}
	switch uid {
	case ledger.BankUID:
		acc, ok := e.Ledger.BankLiabilities.Get(accountID)
		return acc, e.Ledger.BankLiabilities, ok
	case ledger.DealerUID:
		acc, ok := e.Ledger.DealerAccounts.Get(accountID)
		return acc, e.Ledger.DealerAccounts, ok
	default:
		ua, ok := e.Ledger.LookupUser(uid)
		if !ok {
			return ledger.Account{}, nil, false
		}
		acc, ok := ua.Get(accountID)
		return acc, ua, ok
	}
}

func (e *Engine) putCliAccount(uid ledger.UserID, acc ledger.Account, owner *ledger.UserAccount) {
	if acc.AccountID == e.Ledger.InsuranceFund.AccountID {
		e.Ledger.PutInsuranceFund(acc)
		return
	}
	if owner != nil {
		owner.Put(acc)
	}
}
