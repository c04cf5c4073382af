// Package ledger owns the in-memory account collections the bank
// engine books every transaction against: per-user accounts, dealer
// accounts, bank-liability accounts, and the insurance fund.
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankengine/pkg/money"
)

// UserID identifies the owner of an account. BankUID and DealerUID are
// reserved non-customer identities; no real customer may share them.
type UserID uint64

const (
	// BankUID is the reserved identity that owns bank-liability
	// accounts.
	BankUID UserID = 23193913
	// DealerUID is the reserved identity that owns dealer accounts and
	// the insurance fund.
	DealerUID UserID = 52172712
)

// AccountType distinguishes a platform-internal ledger entry from one
// that represents a claim external to the platform (e.g. funds sitting
// on the Lightning node backing customer deposits).
type AccountType string

const (
	Internal AccountType = "internal"
	External AccountType = "external"
)

// AccountClass further tags an account by its accounting purpose.
type AccountClass string

const (
	ClassCash AccountClass = "cash"
	ClassFees AccountClass = "fees"
)

// Account is a single ledger entry: an owner-scoped balance in one
// currency. Balance must never be mutated except through the booking
// primitives in package txlog.
type Account struct {
	AccountID uuid.UUID
	Currency  money.Currency
	Balance   decimal.Decimal
	Type      AccountType
	Class     AccountClass
}

// NewAccount allocates a fresh account with a zero balance.
func NewAccount(currency money.Currency, accountType AccountType, class AccountClass) Account {
	return Account{
		AccountID: uuid.New(),
		Currency:  currency,
		Balance:   decimal.Zero,
		Type:      accountType,
		Class:     class,
	}
}

// Money returns the account's balance as a currency-tagged amount.
func (a Account) Money() money.Money {
	return money.New(a.Currency, a.Balance)
}
