package mdgeo

import (
	"fmt"
	"math"

	"alertx/internal/app/domains/entity/etprimitive"
)

// EarthRadiusKm 球面半径
const EarthRadiusKm = 6371.0

// Config ETA 估算配置
type Config struct {
	AvgSpeedKmh float64
	MinMinutes  int
	MaxMinutes  int
}

// Estimate 估算结果
type Estimate struct {
	DistanceKm float64 `json:"distance_km"`
	RawMinutes int     `json:"raw_minutes"` // 钳制前
	ETAMinutes int     `json:"eta_minutes"`
}

// Estimator 直线距离 + 平均速度的 ETA 估算，无 I/O
type Estimator struct {
	cfg Config
}

// NewEstimator 创建估算器
func NewEstimator(cfg Config) (*Estimator, error) {
	if cfg.AvgSpeedKmh <= 0 {
		return nil, fmt.Errorf("avg speed must be positive: %f", cfg.AvgSpeedKmh)
	}
	if cfg.MinMinutes < 0 || cfg.MaxMinutes < cfg.MinMinutes {
		return nil, fmt.Errorf("invalid eta bounds: min=%d max=%d", cfg.MinMinutes, cfg.MaxMinutes)
	}
	return &Estimator{cfg: cfg}, nil
}

// Estimate 使用默认平均速度
func (e *Estimator) Estimate(from, to etprimitive.Coordinates) Estimate {
	return e.EstimateAt(from, to, e.cfg.AvgSpeedKmh)
}

// EstimateAt 指定平均速度
func (e *Estimator) EstimateAt(from, to etprimitive.Coordinates, speedKmh float64) Estimate {
	if speedKmh <= 0 {
		speedKmh = e.cfg.AvgSpeedKmh
	}
	dist := DistanceKm(from, to)
	raw := int(math.Round(dist / speedKmh * 60))
	return Estimate{
		DistanceKm: dist,
		RawMinutes: raw,
		ETAMinutes: e.Clamp(raw),
	}
}

// Clamp 钳制到配置区间
func (e *Estimator) Clamp(minutes int) int {
	if minutes < e.cfg.MinMinutes {
		return e.cfg.MinMinutes
	}
	if minutes > e.cfg.MaxMinutes {
		return e.cfg.MaxMinutes
	}
	return minutes
}

// DistanceKm 半正矢公式求球面距离
func DistanceKm(a, b etprimitive.Coordinates) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// 对跖点附近舍入误差会让 h 略大于 1
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Asin(math.Sqrt(h))
	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
