package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"alertx/internal/app/pkg/logger"
	"alertx/internal/feed/domains/common"
	"alertx/internal/feed/domains/common/job"
	"alertx/internal/feed/domains/common/response"
	"alertx/internal/feed/lmstfyx"
)

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, svc common.CaseEvents) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job，结构错误重投也无用
		meta, payload, err := parseJob(lmstfyJob)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: job=%s, error=%v", lmstfyJob.ID, err)
			return lmstfyx.Bury(nil)
		}

		// 2. 注入 TraceID 等日志字段
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = logger.WithActionType(ctx, meta.ActionType)
		ctx = logger.WithCaseID(ctx, meta.ID)

		// 3. 路由
		newHandler, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return lmstfyx.Bury(nil)
		}

		// 4. 调用 Handler（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
					resp = lmstfyx.Bury(nil)
				}
			}()

			handler, err := newHandler(ctx, svc, meta, payload)
			if err != nil {
				log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
				resp = lmstfyx.Bury(nil)
				return
			}
			resp = doJobReport(ctx, handler.GetProcess(), log)
		}()

		log.Debugf(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))
		return resp
	}
}

func parseJob(lmstfyJob *client.Job) (*job.Meta, json.RawMessage, error) {
	var standardJob job.Job
	if err := json.Unmarshal(lmstfyJob.Data, &standardJob); err != nil {
		return nil, nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if standardJob.Payload == nil || standardJob.Payload.Data == nil {
		return nil, nil, fmt.Errorf("invalid job structure: payload.data is nil")
	}

	data := standardJob.Payload.Data
	meta := &job.Meta{
		RequestID:  data.RequestID,
		OrgID:      data.OrgID,
		ActionType: data.ActionType,
		ID:         data.ID,
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}
	return meta, data.Data, nil
}

// doJobReport 根据 Response 决定 ACK / Bury / Release
func doJobReport(ctx context.Context, resp *response.Response, log logger.Logger) *lmstfyx.JobResp {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] marshal response failed: %v", err)
		data = nil
	}

	switch {
	case resp.Processed:
		return lmstfyx.Success(data)
	case resp.Retryable():
		log.Warnf(ctx, "[doJobReport] retryable failure: %s", resp.Error.Message)
		return lmstfyx.Release(data)
	default:
		log.Errorf(ctx, "[doJobReport] permanent failure: %s", resp.Error.Message)
		return lmstfyx.Bury(data)
	}
}
