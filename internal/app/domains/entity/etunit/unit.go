package etunit

import (
	"errors"
	"strings"

	"alertx/internal/app/domains/entity/etprimitive"
)

var ErrUnknownUnitClass = errors.New("unknown unit class")

// UnitClass 车辆等级
type UnitClass string

const (
	ClassBasic        UnitClass = "Basic"
	ClassAdvanced     UnitClass = "Advanced"
	ClassCriticalCare UnitClass = "CriticalCare"
	ClassSpecialized  UnitClass = "Specialized"
)

// Classes 全部等级
var Classes = []UnitClass{ClassBasic, ClassAdvanced, ClassCriticalCare, ClassSpecialized}

// ParseUnitClass 大小写不敏感解析
func ParseUnitClass(s string) (UnitClass, error) {
	for _, c := range Classes {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", ErrUnknownUnitClass
}

// CrewMember 乘员角色及人数
type CrewMember struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// ClassProfile 车辆等级参考数据：装备与乘员配置
type ClassProfile struct {
	Class     UnitClass
	Equipment []string
	Crew      []CrewMember
}

// 静态参考数据，启动后只读
var classProfiles = map[UnitClass]ClassProfile{
	ClassBasic: {
		Class:     ClassBasic,
		Equipment: []string{"first aid kit", "oxygen", "stretcher", "AED"},
		Crew:      []CrewMember{{Role: "EMT", Count: 2}},
	},
	ClassAdvanced: {
		Class:     ClassAdvanced,
		Equipment: []string{"cardiac monitor", "defibrillator", "IV supplies", "advanced airway kit", "medications", "oxygen", "stretcher"},
		Crew:      []CrewMember{{Role: "paramedic", Count: 1}, {Role: "EMT", Count: 1}},
	},
	ClassCriticalCare: {
		Class:     ClassCriticalCare,
		Equipment: []string{"ventilator", "infusion pumps", "12-lead ECG", "defibrillator", "blood products", "advanced airway kit", "critical care medications"},
		Crew:      []CrewMember{{Role: "critical care paramedic", Count: 1}, {Role: "critical care nurse", Count: 1}, {Role: "EMT", Count: 1}},
	},
	ClassSpecialized: {
		Class:     ClassSpecialized,
		Equipment: []string{"burn kit", "decontamination kit", "antidote kit", "epinephrine", "hazmat PPE", "oxygen", "stretcher"},
		Crew:      []CrewMember{{Role: "paramedic", Count: 1}, {Role: "hazmat technician", Count: 1}},
	},
}

// ProfileOf 查询等级参考数据，返回副本
func ProfileOf(class UnitClass) (ClassProfile, error) {
	p, ok := classProfiles[class]
	if !ok {
		return ClassProfile{}, ErrUnknownUnitClass
	}
	return ClassProfile{
		Class:     p.Class,
		Equipment: append([]string(nil), p.Equipment...),
		Crew:      append([]CrewMember(nil), p.Crew...),
	}, nil
}

// supersets 精确等级缺车时可替代的更高等级，按优先顺序
var supersets = map[UnitClass][]UnitClass{
	ClassBasic:        {ClassAdvanced, ClassCriticalCare},
	ClassAdvanced:     {ClassCriticalCare},
	ClassSpecialized:  {ClassCriticalCare},
	ClassCriticalCare: nil,
}

// SearchOrder 查车顺序：精确等级在前，其后为替代等级
func SearchOrder(class UnitClass) []UnitClass {
	order := []UnitClass{class}
	return append(order, supersets[class]...)
}

// Unit 车辆池中的候选车辆
type Unit struct {
	ID        string                  `json:"id"`
	Class     UnitClass               `json:"class"`
	Location  etprimitive.Coordinates `json:"location"`
	Available bool                    `json:"available"`
}

// Facility 目的地医疗机构
type Facility struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	Location etprimitive.Coordinates `json:"location"`
}

// Assignment 派车结果，每个 Case 至多一次
type Assignment struct {
	UnitID       string                   `json:"unit_id"`
	Class        UnitClass                `json:"class"`
	Crew         []CrewMember             `json:"crew"`
	Equipment    []string                 `json:"equipment"`
	UnitLocation *etprimitive.Coordinates `json:"unit_location,omitempty"`
	Destination  *Facility                `json:"destination,omitempty"`
	DistanceKm   float64                  `json:"distance_km"`
	ETAMinutes   int                      `json:"eta_minutes"`
	Degraded     bool                     `json:"degraded"`
}

// Clone 深拷贝
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Crew = append([]CrewMember(nil), a.Crew...)
	cp.Equipment = append([]string(nil), a.Equipment...)
	if a.UnitLocation != nil {
		loc := *a.UnitLocation
		cp.UnitLocation = &loc
	}
	if a.Destination != nil {
		dst := *a.Destination
		cp.Destination = &dst
	}
	return &cp
}
