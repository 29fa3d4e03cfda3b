package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"go-marketplace/pkg/errors"
)

// Currency is an ISO 4217 code accepted by the marketplace
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyMAD Currency = "MAD"
)

var supportedCurrencies = map[Currency]struct{}{
	CurrencyUSD: {},
	CurrencyEUR: {},
	CurrencyGBP: {},
	CurrencyJPY: {},
	CurrencyMAD: {},
}

// ParseCurrency validates a currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(code)
	if _, ok := supportedCurrencies[c]; !ok {
		return "", ErrInvalidCurrency.WithDetails(map[string]interface{}{"currency": code})
	}
	return c, nil
}

const moneyScale = 2

// Money is an immutable currency-tagged fixed-point amount.
// The zero value is not valid; build one with NewMoney or Zero.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney validates amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if _, ok := supportedCurrencies[currency]; !ok {
		return Money{}, ErrInvalidCurrency.WithDetails(map[string]interface{}{"currency": string(currency)})
	}
	if amount.IsNegative() {
		return Money{}, ErrInvalidAmount.WithDetails(map[string]interface{}{"amount": amount.String()})
	}
	if !amount.Equal(amount.Round(moneyScale)) {
		return Money{}, ErrInvalidAmount.WithDetails(map[string]interface{}{"amount": amount.String()})
	}
	return Money{amount: amount, currency: currency}, nil
}

// ParseMoney builds Money from a decimal string such as "10.50"
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, ErrInvalidAmount.WithDetails(map[string]interface{}{"amount": amount})
	}
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, c)
}

// MustMoney is ParseMoney that panics; for fixtures and constants only.
func MustMoney(amount, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency
func Zero(currency Currency) (Money, error) {
	return NewMoney(decimal.Zero, currency)
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Add returns m + other. Both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Add(other.amount), m.currency)
}

// Subtract returns m - other. A negative result is rejected.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency)
}

// Multiply scales by a non-negative integer quantity
func (m Money) Multiply(quantity int) (Money, error) {
	if quantity < 0 {
		return Money{}, ErrInvalidAmount.WithDetails(map[string]interface{}{"multiplier": quantity})
	}
	return NewMoney(m.amount.Mul(decimal.NewFromInt(int64(quantity))), m.currency)
}

// MultiplyDecimal scales by a non-negative decimal factor, rounding half away
// from zero to two fractional digits.
func (m Money) MultiplyDecimal(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrInvalidAmount.WithDetails(map[string]interface{}{"multiplier": factor.String()})
	}
	return NewMoney(m.amount.Mul(factor).Round(moneyScale), m.currency)
}

// Equals compares amount and currency. Comparing different currencies is an
// error, not false.
func (m Money) Equals(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.Equal(other.amount), nil
}

// String renders "25.50 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(moneyScale), m.currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return errors.NewCurrencyMismatch(string(m.currency), string(other.currency))
	}
	return nil
}
