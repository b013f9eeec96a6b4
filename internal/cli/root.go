// Package cli 命令行入口：serve 启动服务，classify / estimate 离线调试
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alertx/internal/app/config"
	"alertx/internal/app/pkg/logger"
)

var configPath string

// NewRootCmd 构建完整命令树，每次调用返回独立的 flag 状态
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alertx",
		Short:         "Emergency triage, dispatch and case tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 config/config.yaml，可用 ALERTX_* 环境变量覆盖）")
	root.AddCommand(newServeCmd(), newClassifyCmd(), newEstimateCmd())
	return root
}

// Execute 执行命令，出错时退出码为 1
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}
