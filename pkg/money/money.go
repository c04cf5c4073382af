// Package money implements the currency-tagged decimal primitives the
// ledger books every transaction in.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency identifies a unit of account. BTC is always present; fiat
// codes are whatever the dealer quotes rates for.
type Currency string

const (
	BTC Currency = "BTC"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// SatsDecimals is the number of fractional decimal places in one BTC
// that correspond to one satoshi.
const SatsDecimals = 8

// SatsInBitcoin is the number of satoshis in one BTC.
const SatsInBitcoin = 100_000_000

// Money is a currency-tagged, arbitrary-precision decimal amount.
// Arithmetic across two Money values is only ever valid within the
// same currency; crossing currencies requires Exchange.
type Money struct {
	Currency Currency
	Value    decimal.Decimal
}

// New builds a Money value from a decimal amount in the given currency.
func New(currency Currency, value decimal.Decimal) Money {
	return Money{Currency: currency, Value: value}
}

// Zero returns a zero-valued Money in the given currency.
func Zero(currency Currency) Money {
	return Money{Currency: currency, Value: decimal.Zero}
}

// FromSats builds a BTC-denominated Money from an integer satoshi amount.
func FromSats(sats int64) Money {
	return Money{
		Currency: BTC,
		Value:    decimal.New(sats, 0).Shift(-SatsDecimals),
	}
}

// FromSatsDecimal builds a BTC-denominated Money from a decimal satoshi
// amount, used where a fee or fraction of a sat must be carried without
// premature rounding.
func FromSatsDecimal(sats decimal.Decimal) Money {
	return Money{Currency: BTC, Value: sats.Shift(-SatsDecimals)}
}

// Sats returns the amount in satoshis, as an exact decimal (no rounding
// performed here — callers that need an integer call SatsRounded).
func (m Money) Sats() (decimal.Decimal, error) {
	if m.Currency != BTC {
		return decimal.Decimal{}, fmt.Errorf("money: cannot express %s amount in sats", m.Currency)
	}
	return m.Value.Shift(SatsDecimals), nil
}

// SatsRounded returns the amount in satoshis rounded away from zero to
// the nearest integer, the rounding direction the wire format and every
// fee reservation in this package use so reservations never under-count.
func (m Money) SatsRounded() (int64, error) {
	sats, err := m.Sats()
	if err != nil {
		return 0, err
	}
	return roundAwayFromZero(sats).IntPart(), nil
}

func roundAwayFromZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() >= 0 {
		return d.Ceil()
	}
	return d.Floor()
}

// Add returns self + other. Both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("money: currency mismatch %s != %s", m.Currency, other.Currency)
	}
	return Money{Currency: m.Currency, Value: m.Value.Add(other.Value)}, nil
}

// Sub returns self - other. Both must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("money: currency mismatch %s != %s", m.Currency, other.Currency)
	}
	return Money{Currency: m.Currency, Value: m.Value.Sub(other.Value)}, nil
}

// IsPositive reports whether the value is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Value.Sign() > 0
}

// IsZero reports whether the value is exactly zero.
func (m Money) IsZero() bool {
	return m.Value.IsZero()
}

// Rate is an exchange rate tagged by the currency pair it converts
// between: multiplying a Money in Base by Value yields an amount in
// Quote.
type Rate struct {
	Base  Currency
	Quote Currency
	Value decimal.Decimal
}

// OneToOne returns the identity rate for a currency, used whenever a
// leg of a booking needs a rate but isn't actually crossing currencies.
func OneToOne(currency Currency) Rate {
	return Rate{Base: currency, Quote: currency, Value: decimal.NewFromInt(1)}
}

// Exchange converts m into the rate's quote currency. m.Currency must
// equal rate.Base.
func (m Money) Exchange(rate Rate) (Money, error) {
	if m.Currency != rate.Base {
		return Money{}, fmt.Errorf("money: rate base %s does not match amount currency %s", rate.Base, m.Currency)
	}
	return Money{Currency: rate.Quote, Value: m.Value.Mul(rate.Value)}, nil
}
