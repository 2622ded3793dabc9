package domain

import "github.com/shopspring/decimal"

// Money is an exact decimal amount in the store currency.
type Money = decimal.Decimal

var Zero = decimal.Zero

// Dollars parses a literal amount such as "19.99". It panics on malformed
// input and is meant for constants and tests.
func Dollars(s string) Money {
	return decimal.RequireFromString(s)
}

// Round2 rounds to cents, halves away from zero.
func Round2(m Money) Money {
	return m.Round(2)
}
