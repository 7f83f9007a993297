package config

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"bufpool-x/status"
)

type ByteSize int64

// Int64 返回字节数的 int64 表达。
func (b ByteSize) Int64() int64 { return int64(b) }

// String 以二进制单位输出（如 488.3KiB）。
func (b ByteSize) String() string { return units.BytesSize(float64(b)) }

// UnmarshalYAML 支持从 YAML 中解析 ByteSize（如 100MB、2GB、1024B、500000）。
// 参数：
// - value: YAML 节点
// 返回：
// - error: 解析失败原因
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*b = 0
		return nil
	}
	v := strings.TrimSpace(value.Value)
	if v == "" {
		*b = 0
		return nil
	}
	n, err := ParseByteSize(v)
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

// ParseByteSize 解析形如 "100MB"/"1.5GB" 的字节数文本（按 1024 进制）。
// 参数：
// - s: 字节数文本
// 返回：
// - int64: 字节数
// - error: 解析失败原因
func ParseByteSize(s string) (int64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}
	return n, nil
}

// DefaultConfig 返回一份可用的默认配置（用于未提供配置文件或作为缺省值合并）。
// 压测默认值对应最初的基准程序：单个缓冲区上限 500000 字节、每批 10 个。
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			CleanupTimeout: 0,
			Policies:       []status.Policy{status.PolicyZeroBuffer},
			SweepInterval:  0,
		},
		Bench: BenchConfig{
			Workloads:  []string{"single", "from", "batch"},
			MaxSize:    ByteSize(500000),
			Iterations: 1000000,
			Batch:      10,
			Workers:    8,
			Hold:       64,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "bufpool",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: "/var/log/bufpool-bench.log",
			MaxSize:  ByteSize(100 * 1024 * 1024),
			MaxAge:   7,
			Compress: true,
		},
	}
}
