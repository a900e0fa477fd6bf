package domain

import (
	"fmt"
	"strconv"
	"strings"
)

var supportedCurrencies = map[string]bool{
	"EUR": true,
	"USD": true,
	"CHF": true,
	"PLN": true,
	"CZK": true,
	"HUF": true,
}

// Money is an amount in minor units with an ISO 4217 currency.
type Money struct {
	AmountMinor int64
	Currency    string
}

// NewMoney validates the amount and currency. The currency is upper-cased.
func NewMoney(amountMinor int64, currency string) (Money, error) {
	if amountMinor <= 0 {
		return Money{}, ErrStakeNotPositive
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 || !supportedCurrencies[code] {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Money{AmountMinor: amountMinor, Currency: code}, nil
}

// ParseMoney reads a decimal major-unit amount such as "12.5" or "40".
func ParseMoney(amount, currency string) (Money, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(amount), ".")
	if len(frac) > 2 {
		return Money{}, fmt.Errorf("invalid amount %q: at most two decimals", amount)
	}
	frac += strings.Repeat("0", 2-len(frac))
	minor, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoney(minor, currency)
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.AmountMinor/100, m.AmountMinor%100, m.Currency)
}
