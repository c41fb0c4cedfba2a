// Package shipping 依買賣雙方座標估算運送距離與運費
// 距離採 Haversine 球面距離，運費為基本費加上里程費
package shipping

import "math"

// earthRadiusKm 地球平均半徑，單位公里
const earthRadiusKm = 6371.0

// Config 運費計算參數，金額以 Sokocoin 計
type Config struct {
	// BaseFee 起運基本費
	BaseFee float64
	// PerKmRate 每公里費率
	PerKmRate float64
	// MinBillableKm 最低計費里程，距離不足時仍以此里程計費
	MinBillableKm float64
	// FreeRadiusKm 免運半徑，距離小於此值視同面交不收運費
	FreeRadiusKm float64
}

// DefaultConfig 回傳預設費率
func DefaultConfig() Config {
	return Config{
		BaseFee:       2.0,
		PerKmRate:     0.5,
		MinBillableKm: 1.0,
		FreeRadiusKm:  0.1,
	}
}

type Calculator struct {
	config Config
}

func NewCalculator(config Config) *Calculator {
	return &Calculator{config: config}
}

// Distance 計算兩座標間的球面距離，單位公里，四捨五入到小數兩位
func (c *Calculator) Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	arc := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return round2(earthRadiusKm * arc)
}

// DistanceBetween 計算兩組可能缺漏的座標間距離
// 任一座標缺漏時回傳 nil，表示無法估算運送距離
func (c *Calculator) DistanceBetween(lat1, lon1, lat2, lon2 *float64) *float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return nil
	}
	d := c.Distance(*lat1, *lon1, *lat2, *lon2)
	return &d
}

// Fee 依距離計算運費
// 免運半徑內不收費，其餘距離以最低計費里程起跳
func (c *Calculator) Fee(distanceKm float64) float64 {
	if distanceKm < c.config.FreeRadiusKm {
		return 0
	}
	base := math.Max(c.config.BaseFee, 0)
	perKm := math.Max(c.config.PerKmRate, 0)
	minKm := math.Max(c.config.MinBillableKm, 0)

	billable := math.Max(distanceKm, minKm)
	return round2(base + billable*perKm)
}

// FeeForDistance 與 Fee 相同，但接受可能缺漏的距離
// 無法估算距離時不收運費
func (c *Calculator) FeeForDistance(distanceKm *float64) float64 {
	if distanceKm == nil {
		return 0
	}
	return c.Fee(*distanceKm)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
