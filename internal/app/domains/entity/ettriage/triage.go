package ettriage

import (
	"errors"
	"strings"
)

// 错误定义
var (
	ErrUnknownSeverity = errors.New("unknown severity")
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyInput      = errors.New("symptom input is empty")
)

// Severity 严重等级
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities 由低到高
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank 等级序号，low=0
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid 是否为合法等级
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Raise 上调 n 级，封顶 critical
func (s Severity) Raise(n int) Severity {
	r := s.Rank() + n
	if r >= len(Severities) {
		r = len(Severities) - 1
	}
	if r < 0 {
		r = 0
	}
	return Severities[r]
}

// Max 取较高者
func Max(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseSeverity 解析等级
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", ErrUnknownSeverity
	}
	return sev, nil
}

// Category 急救类别
type Category string

const (
	CategoryCardiac      Category = "cardiac"
	CategoryRespiratory  Category = "respiratory"
	CategoryNeurological Category = "neurological"
	CategoryBleeding     Category = "bleeding"
	CategoryPoisoning    Category = "poisoning"
	CategoryAllergic     Category = "allergic"
	CategoryBurn         Category = "burn"
	CategoryFracture     Category = "fracture"
	CategoryTrauma       Category = "trauma"
	CategoryGeneral      Category = "general"
)

// Categories 全部类别
var Categories = []Category{
	CategoryCardiac,
	CategoryRespiratory,
	CategoryNeurological,
	CategoryBleeding,
	CategoryPoisoning,
	CategoryAllergic,
	CategoryBurn,
	CategoryFracture,
	CategoryTrauma,
	CategoryGeneral,
}

// Valid 是否为合法类别
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ParseCategory 解析类别
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// PatientContext 患者背景（可选）
type PatientContext struct {
	Age             int      `json:"age,omitempty"`
	KnownConditions []string `json:"known_conditions,omitempty"`
}

// SymptomInput 症状输入（提交后不可变）
type SymptomInput struct {
	Description   string          `json:"description"`
	QuickSymptoms []string        `json:"quick_symptoms,omitempty"`
	Urgency       string          `json:"urgency,omitempty"`
	Patient       *PatientContext `json:"patient,omitempty"`
}

// IsEmpty 没有任何可分析内容
func (in *SymptomInput) IsEmpty() bool {
	return in == nil || (strings.TrimSpace(in.Description) == "" && len(in.QuickSymptoms) == 0)
}

// DetectedSymptom 命中的症状及其子等级
type DetectedSymptom struct {
	Symptom  string   `json:"symptom"`
	Severity Severity `json:"severity"`
}

// Insight 语言分析结果，只用于类别细化和有限上调
type Insight struct {
	Entities           []string `json:"entities,omitempty"`
	Onset              string   `json:"onset,omitempty"`
	Duration           string   `json:"duration,omitempty"`
	DistressLevel      string   `json:"distress_level,omitempty"`
	SeverityMultiplier float64  `json:"severity_multiplier,omitempty"`
}

// Escalates 是否要求上调一级
func (i *Insight) Escalates() bool {
	if i == nil {
		return false
	}
	switch strings.ToLower(i.DistressLevel) {
	case "severe", "extreme":
		return true
	}
	return i.SeverityMultiplier > 1
}

// TriageResult 分诊结果（生成后不可变）
type TriageResult struct {
	Severity   Severity          `json:"severity"`
	Confidence int               `json:"confidence"`
	Symptoms   []DetectedSymptom `json:"symptoms"`
	Category   Category          `json:"category"`
	Insight    *Insight          `json:"insight,omitempty"`
}

// Validate 校验外部传入的预计算结果
func (r *TriageResult) Validate() error {
	if r == nil {
		return errors.New("triage result is nil")
	}
	if !r.Severity.Valid() {
		return ErrUnknownSeverity
	}
	if !r.Category.Valid() {
		return ErrUnknownCategory
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return errors.New("confidence out of range")
	}
	return nil
}
