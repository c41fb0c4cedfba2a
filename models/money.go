package models

import "math"

// Round2 將金額四捨五入到小數兩位
// 所有對外呈現與入帳的 Sokocoin 金額都先經過這裡
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
