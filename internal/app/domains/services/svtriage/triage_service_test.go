package svtriage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/modules/mdtriage"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

type downClassifier struct{}

func (downClassifier) Classify(ctx context.Context, in *ettriage.SymptomInput) (*ettriage.TriageResult, error) {
	return nil, fmt.Errorf("%w: dial tcp: connection refused", errorx.ErrClassifierUnavailable)
}

type slowClassifier struct{}

func (slowClassifier) Classify(ctx context.Context, in *ettriage.SymptomInput) (*ettriage.TriageResult, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("%w: %v", errorx.ErrClassifierUnavailable, ctx.Err())
}

func TestAnalyze(t *testing.T) {
	engine := mdtriage.NewEngine()
	scenario := &ettriage.SymptomInput{
		Description:   "severe chest pain and difficulty breathing",
		QuickSymptoms: []string{"chest pain"},
		Urgency:       "immediate",
	}

	tests := []struct {
		name       string
		classifier mdtriage.Classifier
	}{
		{"local", mdtriage.NewLocalClassifier(engine)},
		{"backend down", downClassifier{}},
		{"backend slow", slowClassifier{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTriageService(tt.classifier, engine, 50*time.Millisecond, logger.NewNop())

			res, err := svc.Analyze(context.Background(), scenario)
			require.NoError(t, err)
			assert.Equal(t, ettriage.SeverityCritical, res.Severity)
			assert.Equal(t, ettriage.CategoryCardiac, res.Category)
		})
	}

	t.Run("empty input", func(t *testing.T) {
		svc := NewTriageService(mdtriage.NewLocalClassifier(engine), engine, time.Second, logger.NewNop())
		_, err := svc.Analyze(context.Background(), &ettriage.SymptomInput{Description: "   "})
		assert.ErrorIs(t, err, ettriage.ErrEmptyInput)
	})

	t.Run("classify surfaces unavailability", func(t *testing.T) {
		svc := NewTriageService(downClassifier{}, engine, time.Second, logger.NewNop())
		_, err := svc.Classify(context.Background(), scenario)
		assert.ErrorIs(t, err, errorx.ErrClassifierUnavailable)
	})
}
