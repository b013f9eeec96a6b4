package mddispatch

import (
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
)

type selectionRule struct {
	severity   ettriage.Severity
	categories map[ettriage.Category]bool // 为空表示任意类别
	class      etunit.UnitClass
}

func categorySet(cats ...ettriage.Category) map[ettriage.Category]bool {
	m := make(map[ettriage.Category]bool, len(cats))
	for _, c := range cats {
		m[c] = true
	}
	return m
}

// 派车决策表，自上而下首个命中生效
var selectionRules = []selectionRule{
	{ettriage.SeverityCritical, categorySet(ettriage.CategoryCardiac, ettriage.CategoryNeurological), etunit.ClassCriticalCare},
	{ettriage.SeverityCritical, nil, etunit.ClassAdvanced},
	{ettriage.SeverityHigh, categorySet(ettriage.CategoryBurn, ettriage.CategoryPoisoning, ettriage.CategoryAllergic), etunit.ClassSpecialized},
	{ettriage.SeverityHigh, nil, etunit.ClassAdvanced},
	{ettriage.SeverityMedium, categorySet(ettriage.CategoryCardiac, ettriage.CategoryRespiratory), etunit.ClassAdvanced},
	{ettriage.SeverityMedium, categorySet(ettriage.CategoryBurn, ettriage.CategoryPoisoning), etunit.ClassSpecialized},
	{ettriage.SeverityMedium, nil, etunit.ClassBasic},
	{ettriage.SeverityLow, nil, etunit.ClassBasic},
}

// SelectUnitClass (等级, 类别) -> 车辆等级
func SelectUnitClass(severity ettriage.Severity, category ettriage.Category) etunit.UnitClass {
	for _, r := range selectionRules {
		if r.severity != severity {
			continue
		}
		if r.categories == nil || r.categories[category] {
			return r.class
		}
	}
	// 未知等级按最保守处理
	return etunit.ClassAdvanced
}
