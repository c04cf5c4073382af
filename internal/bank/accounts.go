package bank

import (
	"bankengine/internal/ledger"
	"bankengine/pkg/money"
)

func (e *Engine) bankLiabilityAccount(currency money.Currency, accountType ledger.AccountType) ledger.Account {
	t := accountType
	return e.Ledger.BankLiabilities.GetDefaultAccount(currency, &t)
}

func (e *Engine) dealerAccount(currency money.Currency, accountType ledger.AccountType) ledger.Account {
	t := accountType
	return e.Ledger.DealerAccounts.GetDefaultAccount(currency, &t)
}

func (e *Engine) putBankLiability(acc ledger.Account) {
	e.Ledger.BankLiabilities.Put(acc)
}

func (e *Engine) putDealerAccount(acc ledger.Account) {
	e.Ledger.DealerAccounts.Put(acc)
}

// currencyWithinDepositLimit reports whether crediting amount to
// account would keep its balance at or under the configured
// per-currency deposit ceiling.
func (e *Engine) currencyWithinDepositLimit(account ledger.Account, amount money.Money) bool {
	limit, ok := e.Config.DepositLimits[account.Currency]
	if !ok {
		return true
	}
	return account.Balance.Add(amount.Value).LessThanOrEqual(limit)
}
