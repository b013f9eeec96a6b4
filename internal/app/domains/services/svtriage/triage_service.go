package svtriage

import (
	"context"
	"errors"
	"time"

	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/modules/mdtriage"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

// TriageService 分诊服务，无状态
type TriageService struct {
	classifier mdtriage.Classifier
	engine     *mdtriage.Engine
	timeout    time.Duration
	logger     logger.Logger
}

// NewTriageService 创建分诊服务
// engine 用于分析后端不可用时的本地兜底
func NewTriageService(classifier mdtriage.Classifier, engine *mdtriage.Engine, timeout time.Duration, log logger.Logger) *TriageService {
	return &TriageService{
		classifier: classifier,
		engine:     engine,
		timeout:    timeout,
		logger:     log,
	}
}

// Analyze 分诊（幂等，无状态变更）
// 分析后端不可用时退回纯关键词结果，不向调用方报错
func (s *TriageService) Analyze(ctx context.Context, in *ettriage.SymptomInput) (*ettriage.TriageResult, error) {
	if in.IsEmpty() {
		return nil, ettriage.ErrEmptyInput
	}

	result, err := s.Classify(ctx, in)
	if err != nil {
		if !errors.Is(err, errorx.ErrClassifierUnavailable) {
			return nil, err
		}
		s.logger.Warnf(ctx, "[TriageService] classifier unavailable, keyword-only result: %v", err)
		return s.engine.Classify(in, nil), nil
	}
	return result, nil
}

// Classify 带超时的分类调用，失败原样返回，由调用方决定是否降级
func (s *TriageService) Classify(ctx context.Context, in *ettriage.SymptomInput) (*ettriage.TriageResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.classifier.Classify(ctx, in)
}
