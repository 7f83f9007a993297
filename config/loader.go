package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	bperrors "bufpool-x/errors"
)

// KnownWorkloads 列出压测工具支持的负载名称。
var KnownWorkloads = []string{"single", "from", "batch", "parallel", "hold"}

// Load 从 YAML 文件读取并解析配置，并做基础校验与默认值补齐。
// 参数：
// - path: 配置文件路径
// 返回：
// - Config: 合并默认值后的配置
// - error: 读取/解析/校验失败原因
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal yaml: %w", err)
	}
	normalize(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, bperrors.Wrap(bperrors.CodeBadRequest, "invalid config", err)
	}
	return cfg, nil
}

// normalize 为留空的日志字段补齐默认值。
func normalize(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "console"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "bufpool"
	}
}

// Validate 校验配置字段合法性（回收阈值、压测参数、日志输出等）。
// 参数：
// - cfg: 待校验配置
// 返回：
// - error: 校验失败原因
func Validate(cfg Config) error {
	if cfg.Pool.CleanupTimeout < 0 {
		return fmt.Errorf("invalid pool.cleanup_timeout: %d", cfg.Pool.CleanupTimeout)
	}
	if cfg.Pool.SweepInterval < 0 {
		return fmt.Errorf("invalid pool.sweep_interval: %s", cfg.Pool.SweepInterval)
	}
	if cfg.Bench.MaxSize.Int64() <= 0 {
		return fmt.Errorf("invalid bench.max_size: %d", cfg.Bench.MaxSize.Int64())
	}
	if cfg.Bench.Iterations <= 0 {
		return fmt.Errorf("invalid bench.iterations: %d", cfg.Bench.Iterations)
	}
	if cfg.Bench.Batch <= 0 {
		return fmt.Errorf("invalid bench.batch: %d", cfg.Bench.Batch)
	}
	if cfg.Bench.Workers <= 0 {
		return fmt.Errorf("invalid bench.workers: %d", cfg.Bench.Workers)
	}
	if cfg.Bench.Hold < 0 {
		return fmt.Errorf("invalid bench.hold: %d", cfg.Bench.Hold)
	}
	for _, w := range cfg.Bench.Workloads {
		if !knownWorkload(w) {
			return fmt.Errorf("unknown bench workload: %q", w)
		}
	}
	switch cfg.Logging.Output {
	case "", "console", "file":
	default:
		return fmt.Errorf("invalid logging.output: %q", cfg.Logging.Output)
	}
	if cfg.Logging.Output == "file" && cfg.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when output=file")
	}
	return nil
}

func knownWorkload(name string) bool {
	for _, w := range KnownWorkloads {
		if w == name {
			return true
		}
	}
	return false
}
