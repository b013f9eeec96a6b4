package request

import (
	"strings"
	"time"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
)

// ToEntity 转换为领域对象
func (r *SymptomInput) ToEntity() *ettriage.SymptomInput {
	in := &ettriage.SymptomInput{
		Description:   strings.TrimSpace(r.Description),
		QuickSymptoms: r.QuickSymptoms,
		Urgency:       r.Urgency,
	}
	if r.Patient != nil {
		in.Patient = &ettriage.PatientContext{
			Age:             r.Patient.Age,
			KnownConditions: r.Patient.KnownConditions,
		}
	}
	return in
}

// ToEntity 转换为领域对象，等级或类别未知时返回错误
func (r *TriageResult) ToEntity() (*ettriage.TriageResult, error) {
	sev, err := ettriage.ParseSeverity(r.Severity)
	if err != nil {
		return nil, err
	}
	cat, err := ettriage.ParseCategory(r.Category)
	if err != nil {
		return nil, err
	}
	return &ettriage.TriageResult{Severity: sev, Category: cat, Confidence: r.Confidence}, nil
}

// ToEntity binding 已保证非空
func (r *Location) ToEntity() etprimitive.Coordinates {
	return etprimitive.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// ToEntity 转换为位置上报，reported_at 缺失时取 now
func (r *LocationUpdateRequest) ToEntity(caseID string, now time.Time) etcase.LocationUpdate {
	upd := etcase.LocationUpdate{
		CaseID:      caseID,
		Source:      etcase.LocationSource(r.Source),
		UnitID:      r.UnitID,
		Coordinates: r.Location.ToEntity(),
		ReportedAt:  now,
	}
	if r.ReportedAt != nil {
		upd.ReportedAt = *r.ReportedAt
	}
	return upd
}
