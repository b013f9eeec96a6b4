package mdtriage

import (
	"context"

	"alertx/internal/app/domains/entity/ettriage"
)

// Classifier 分诊接口
// 后端不可达时返回 errorx.ErrClassifierUnavailable，由调度负责降级
type Classifier interface {
	Classify(ctx context.Context, input *ettriage.SymptomInput) (*ettriage.TriageResult, error)
}

// LocalClassifier 进程内关键词分诊，不依赖外部服务
type LocalClassifier struct {
	engine *Engine
}

// NewLocalClassifier 创建本地分诊器
func NewLocalClassifier(engine *Engine) *LocalClassifier {
	return &LocalClassifier{engine: engine}
}

// Classify 实现 Classifier
func (c *LocalClassifier) Classify(ctx context.Context, input *ettriage.SymptomInput) (*ettriage.TriageResult, error) {
	return c.engine.Classify(input, nil), nil
}
