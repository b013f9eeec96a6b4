package request

// SymptomInput 症状输入
type SymptomInput struct {
	Description   string          `json:"description" binding:"max=4000"`
	QuickSymptoms []string        `json:"quick_symptoms" binding:"max=32,dive,max=128"`
	Urgency       string          `json:"urgency" binding:"omitempty,oneof=immediate urgent soon routine critical high medium low"`
	Patient       *PatientContext `json:"patient"`
}

// PatientContext 患者背景
type PatientContext struct {
	Age             int      `json:"age" binding:"min=0,max=150"`
	KnownConditions []string `json:"known_conditions" binding:"max=32"`
}

// TriageResult 预计算的分诊结果（dispatch-intelligent 使用）
type TriageResult struct {
	Severity   string `json:"severity" binding:"required,oneof=low medium high critical"`
	Category   string `json:"category" binding:"required"`
	Confidence int    `json:"confidence" binding:"min=0,max=100"`
}
