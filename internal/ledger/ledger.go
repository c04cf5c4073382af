package ledger

import (
	"github.com/shopspring/decimal"

	"bankengine/pkg/money"
)

// InsuranceFundFloor is the satoshi balance below which invoicing and
// swap flows are refused.
const InsuranceFundFloor = 10

// Ledger owns every account collection the bank engine mutates.
// Access is single-writer: callers must serialize through the
// dispatcher goroutine, matching the "no locks required by design"
// concurrency model.
type Ledger struct {
	UserAccounts    map[UserID]*UserAccount
	DealerAccounts  *UserAccount
	BankLiabilities *UserAccount
	InsuranceFund   Account
}

// New builds an empty ledger. The insurance fund and the reserved
// dealer/bank-liability account sets are seeded immediately since they
// are singletons identified by the reserved UIDs.
func New() *Ledger {
	return &Ledger{
		UserAccounts:    make(map[UserID]*UserAccount),
		DealerAccounts:  NewUserAccount(DealerUID),
		BankLiabilities: NewUserAccount(BankUID),
		InsuranceFund:   NewAccount(money.BTC, External, ClassCash),
	}
}

// GetOrCreateUser returns the UserAccount for uid, creating an empty
// one on first reference — a UserAccount exists once any request for
// that user has been handled.
func (l *Ledger) GetOrCreateUser(uid UserID) *UserAccount {
	ua, ok := l.UserAccounts[uid]
	if !ok {
		ua = NewUserAccount(uid)
		l.UserAccounts[uid] = ua
	}
	return ua
}

// LookupUser returns the UserAccount for uid without creating it.
func (l *Ledger) LookupUser(uid UserID) (*UserAccount, bool) {
	ua, ok := l.UserAccounts[uid]
	return ua, ok
}

// IsInsuranceFundDepleted reports whether the fund balance has fallen
// below the 10-sat floor.
func (l *Ledger) IsInsuranceFundDepleted() bool {
	floor := decimal.New(InsuranceFundFloor, 0).Shift(-money.SatsDecimals)
	return l.InsuranceFund.Balance.LessThan(floor)
}

// PutInsuranceFund writes back a mutated copy of the insurance fund
// account.
func (l *Ledger) PutInsuranceFund(acc Account) {
	l.InsuranceFund = acc
}
