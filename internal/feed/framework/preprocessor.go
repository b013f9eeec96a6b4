package framework

import (
	"context"
	"fmt"
)

// PreProcessor 函数链：解析 -> 校验 -> 执行，按顺序运行
type PreProcessor struct {
	steps []ProcessorFunc
}

// NewPreProcessor 创建函数链
func NewPreProcessor(steps ...ProcessorFunc) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Run 执行函数链，任一步返回 error 或 ctx 结束即停止
// 返回的错误保留原始错误链，调用方可以 errors.Is 判定
func (p *PreProcessor) Run(ctx context.Context) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}
	return nil
}
