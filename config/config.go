package config

import (
	"time"

	"bufpool-x/status"
)

type Config struct {
	Pool    PoolConfig    `yaml:"pool"`
	Bench   BenchConfig   `yaml:"bench"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type PoolConfig struct {
	// 空闲回收阈值（秒），0 表示不回收
	CleanupTimeout int             `yaml:"cleanup_timeout"`
	Policies       []status.Policy `yaml:"policies"`
	// 后台周期回收间隔，0 表示仅在扩容分配后惰性回收
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type BenchConfig struct {
	Workloads  []string `yaml:"workloads"`
	MaxSize    ByteSize `yaml:"max_size"`
	Iterations int      `yaml:"iterations"`
	Batch      int      `yaml:"batch"`
	Workers    int      `yaml:"workers"`
	Hold       int      `yaml:"hold"`
	// 经调用方追踪器取用，结束时报告未归还的缓冲区
	Track bool `yaml:"track"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level    string   `yaml:"level"`
	Format   string   `yaml:"format"`
	Output   string   `yaml:"output"`
	FilePath string   `yaml:"file_path"`
	MaxSize  ByteSize `yaml:"max_size"`
	MaxAge   int      `yaml:"max_age"`
	Compress bool     `yaml:"compress"`
}
