package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bufpool-x/pool"
	"bufpool-x/status"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestRunWritesReportAndSnapshot 验证完整压测流程返回 0，输出报告并写出 JSON 快照，
// 同时启用周期回收、指标与调用方追踪。
func TestRunWritesReportAndSnapshot(t *testing.T) {
	cfgPath := writeConfig(t, `
pool:
  cleanup_timeout: 60
  policies: [ZeroBuffer]
  sweep_interval: 10ms
bench:
  workloads: [single, hold]
  max_size: 4KB
  iterations: 200
  hold: 8
  track: true
metrics:
  enabled: true
logging:
  level: error
`)
	snapPath := filepath.Join(t.TempDir(), "snapshot.json")

	var out bytes.Buffer
	code := run([]string{"--config_path", cfgPath, "--seed", "7", "--snapshot_path", snapPath}, &out)
	require.Equal(t, 0, code, out.String())
	require.Contains(t, out.String(), "buffer requests")

	raw, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	var snap pool.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	require.Positive(t, snap.Stats.Allocated)
	require.Len(t, snap.Buffers, snap.Stats.Allocated)
	for _, b := range snap.Buffers {
		require.Equal(t, status.BufferFree, b.Status)
	}
	require.Contains(t, string(raw), `"status": "Free"`)
}

// TestRunExitCodes 验证参数错误、配置错误与版本输出的退出码。
func TestRunExitCodes(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"--version"}, &out))
	require.Contains(t, out.String(), Version)

	out.Reset()
	require.Equal(t, 2, run([]string{"--no_such_flag"}, &out))

	out.Reset()
	bad := writeConfig(t, "bench:\n  workloads: [compact]\n")
	require.Equal(t, 1, run([]string{"--config_path", bad}, &out))
	require.Contains(t, out.String(), "502 config "+bad)

	out.Reset()
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	require.Equal(t, 1, run([]string{"--config_path", missing}, &out))
	require.Contains(t, out.String(), "read config file")
}
