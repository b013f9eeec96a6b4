package mddispatch

import (
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mdgeo"
)

// FacilityDirectory 目的地医院目录（静态配置，只读）
type FacilityDirectory struct {
	facilities []etunit.Facility
}

// NewFacilityDirectory 创建医院目录
func NewFacilityDirectory(facilities []etunit.Facility) *FacilityDirectory {
	return &FacilityDirectory{facilities: append([]etunit.Facility(nil), facilities...)}
}

// Nearest 最近的医院，目录为空时返回 nil
func (d *FacilityDirectory) Nearest(at etprimitive.Coordinates) *etunit.Facility {
	if d == nil || len(d.facilities) == 0 {
		return nil
	}
	best := 0
	bestDist := mdgeo.DistanceKm(at, d.facilities[0].Location)
	for i := 1; i < len(d.facilities); i++ {
		if dist := mdgeo.DistanceKm(at, d.facilities[i].Location); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	f := d.facilities[best]
	return &f
}
