// Package core holds the pure trip domain: value types, validation, the
// static currency table and amount parsing. It has no I/O and no state;
// every operation elsewhere in the engine is a value transformation over
// these types.
package core

import (
	"strconv"
	"strings"
)

const (
	TWD Currency = "TWD"
	JPY Currency = "JPY"
	USD Currency = "USD"
	EUR Currency = "EUR"
	KRW Currency = "KRW"
)

// BaseCurrency is the fixed reference currency every net position and
// statistic is computed in. Its rate is 1 by construction.
const BaseCurrency = TWD

// Currency is a code from the closed currency set.
type Currency string

// exchangeRates maps a currency to its value in the base currency. The
// table is a fixed constant set; there is no rate fetching.
var exchangeRates = map[Currency]float64{
	TWD: 1,
	JPY: 0.21,
	USD: 31.5,
	EUR: 34.2,
	KRW: 0.024,
}

var currencyOrder = []Currency{TWD, JPY, USD, EUR, KRW}

// Currencies returns the closed currency set in display order.
func Currencies() []Currency {
	out := make([]Currency, len(currencyOrder))
	copy(out, currencyOrder)
	return out
}

func (c Currency) Valid() bool {
	_, ok := exchangeRates[c]
	return ok
}

// ParseCurrency validates a caller-supplied code against the closed set.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownCurrency
	}
	return c, nil
}

// ToBase converts amount from c into the base currency. c must come from
// the closed set; codes are validated at the boundary with ParseCurrency.
func ToBase(amount float64, c Currency) float64 {
	return amount * exchangeRates[c]
}

// FromBase converts a base-currency amount into c.
func FromBase(amount float64, c Currency) float64 {
	return amount / exchangeRates[c]
}

// ParseAmount converts a user-supplied decimal string into a positive
// amount. It accepts both dot (12.34) and comma (12,34) separators and
// rejects anything non-positive.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
