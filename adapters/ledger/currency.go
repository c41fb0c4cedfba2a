package ledger

import "strings"

// Rates 定義當地貨幣匯率，數值表示 1 Sokocoin 可兌換的當地貨幣金額
type Rates struct {
	TZS float64
	KES float64
	NGN float64
}

// DefaultRates 回傳預設匯率
func DefaultRates() Rates {
	return Rates{
		TZS: 1000,
		KES: 52.7,
		NGN: 587,
	}
}

// Rate 回傳指定貨幣的匯率，未知貨幣以 1:1 計
func (r Rates) Rate(currency string) float64 {
	switch strings.ToUpper(currency) {
	case "TZS":
		return r.TZS
	case "KES":
		return r.KES
	case "NGN":
		return r.NGN
	default:
		return 1.0
	}
}

// ToSokocoin 將當地貨幣金額換算成 Sokocoin
func (r Rates) ToSokocoin(localAmount float64, currency string) float64 {
	rate := r.Rate(currency)
	if rate <= 0 {
		return 0
	}
	return localAmount / rate
}

// FromSokocoin 將 Sokocoin 金額換算成當地貨幣
func (r Rates) FromSokocoin(sokocoinAmount float64, currency string) float64 {
	rate := r.Rate(currency)
	if rate <= 0 {
		return 0
	}
	return sokocoinAmount * rate
}
