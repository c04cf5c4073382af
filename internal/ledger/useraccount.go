package ledger

import (
	"github.com/google/uuid"

	"bankengine/pkg/money"
)

// UserAccount groups every account a single user owns. A user has at
// most one default account per (currency, Internal, Cash); repeated
// calls to GetDefaultAccount for the same currency return the same
// account_id for the lifetime of the process, created lazily on first
// request.
type UserAccount struct {
	Owner    UserID
	Accounts map[uuid.UUID]Account
}

// NewUserAccount returns an empty account set for owner.
func NewUserAccount(owner UserID) *UserAccount {
	return &UserAccount{Owner: owner, Accounts: make(map[uuid.UUID]Account)}
}

// GetDefaultAccount returns the user's Cash account for currency,
// creating it if absent. accountType defaults to Internal — customers
// only ever hold Internal accounts; External is reserved for bank
// liabilities and the dealer's BTC settlement account.
func (u *UserAccount) GetDefaultAccount(currency money.Currency, accountType *AccountType) Account {
	t := Internal
	if accountType != nil {
		t = *accountType
	}
	for _, acc := range u.Accounts {
		if acc.Currency == currency && acc.Type == t && acc.Class == ClassCash {
			return acc
		}
	}
	acc := NewAccount(currency, t, ClassCash)
	u.Accounts[acc.AccountID] = acc
	return acc
}

// Put writes back a (possibly mutated) account belonging to this user.
func (u *UserAccount) Put(acc Account) {
	u.Accounts[acc.AccountID] = acc
}

// Get looks up an account by id.
func (u *UserAccount) Get(id uuid.UUID) (Account, bool) {
	acc, ok := u.Accounts[id]
	return acc, ok
}
