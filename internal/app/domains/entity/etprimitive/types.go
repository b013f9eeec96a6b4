package etprimitive

import (
	"errors"
	"fmt"
	"math"
)

// 基础类型和通用值对象

// ErrInvalidCoordinates 经纬度越界
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinates 经纬度（值对象，WGS84）
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinates 创建经纬度，校验取值范围
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	c := Coordinates{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// Validate 校验经纬度范围
func (c Coordinates) Validate() error {
	if !finite(c.Latitude) || !finite(c.Longitude) {
		return fmt.Errorf("%w: not a finite number: %v,%v", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range: %f", ErrInvalidCoordinates, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range: %f", ErrInvalidCoordinates, c.Longitude)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Equal 坐标是否完全一致
func (c Coordinates) Equal(o Coordinates) bool {
	return c.Latitude == o.Latitude && c.Longitude == o.Longitude
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", c.Latitude, c.Longitude)
}
