package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRates(t *testing.T) {
	rates := DefaultRates()

	tests := []struct {
		name     string
		currency string
		local    float64
		sokocoin float64
	}{
		{name: "tzs", currency: "TZS", local: 10000, sokocoin: 10},
		{name: "kes", currency: "KES", local: 52.7, sokocoin: 1},
		{name: "ngn", currency: "NGN", local: 587, sokocoin: 1},
		{name: "lowercase_currency", currency: "tzs", local: 1000, sokocoin: 1},
		{name: "unknown_currency_one_to_one", currency: "USD", local: 42, sokocoin: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.sokocoin, rates.ToSokocoin(tt.local, tt.currency), 1e-9)
			assert.InDelta(t, tt.local, rates.FromSokocoin(tt.sokocoin, tt.currency), 1e-9)
		})
	}
}

func TestRatesZeroRate(t *testing.T) {
	rates := Rates{TZS: 0}

	assert.Zero(t, rates.ToSokocoin(1000, "TZS"))
	assert.Zero(t, rates.FromSokocoin(10, "TZS"))
}
