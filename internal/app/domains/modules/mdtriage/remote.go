package mdtriage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/pkg/errorx"
)

// RemoteConfig 语言分析后端配置
type RemoteConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// RemoteClassifier 先向语言分析后端取 Insight，再交给关键词引擎
type RemoteClassifier struct {
	cfg    RemoteConfig
	engine *Engine
	client *http.Client
}

// NewRemoteClassifier 创建远程分诊器，client 为空时使用默认客户端
func NewRemoteClassifier(cfg RemoteConfig, engine *Engine, client *http.Client) *RemoteClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &RemoteClassifier{cfg: cfg, engine: engine, client: client}
}

// Classify 实现 Classifier
func (c *RemoteClassifier) Classify(ctx context.Context, input *ettriage.SymptomInput) (*ettriage.TriageResult, error) {
	insight, err := c.fetchInsight(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorx.ErrClassifierUnavailable, err)
	}
	return c.engine.Classify(input, insight), nil
}

func (c *RemoteClassifier) fetchInsight(ctx context.Context, input *ettriage.SymptomInput) (*ettriage.Insight, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal input failed: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint+"/v1/insights", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("insight backend returned status %d", resp.StatusCode)
	}

	var insight ettriage.Insight
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&insight); err != nil {
		return nil, fmt.Errorf("decode insight failed: %w", err)
	}
	return &insight, nil
}
