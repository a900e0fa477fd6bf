package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(1999, " chf ")
	require.NoError(t, err)
	assert.Equal(t, Money{AmountMinor: 1999, Currency: "CHF"}, m)
	assert.Equal(t, "19.99 CHF", m.String())

	_, err = NewMoney(-1, "EUR")
	assert.ErrorIs(t, err, ErrStakeNotPositive)

	_, err = NewMoney(100, "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		amount  string
		want    int64
		wantErr bool
	}{
		{amount: "40", want: 4000},
		{amount: "12.5", want: 1250},
		{amount: "0.99", want: 99},
		{amount: "1.234", wantErr: true},
		{amount: "abc", wantErr: true},
		{amount: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			m, err := ParseMoney(tt.amount, "usd")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.AmountMinor)
			assert.Equal(t, "USD", m.Currency)
		})
	}
}
