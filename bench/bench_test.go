package bench

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bufpool-x/config"
	bplog "bufpool-x/log"
	"bufpool-x/pool"
	"bufpool-x/trace"
)

func newRunner(t *testing.T, workloads ...string) (*Runner, *pool.Pool) {
	t.Helper()
	p := pool.New(pool.WithLogger(bplog.Discard()))
	p.Initialize()
	cfg := config.DefaultConfig().Bench
	cfg.Workloads = workloads
	cfg.MaxSize = config.ByteSize(4096)
	cfg.Iterations = 2000
	cfg.Workers = 4
	cfg.Hold = 16
	return NewRunner(p, cfg, bplog.Discard(), 42), p
}

// TestRunAllWorkloads 验证全部负载执行完后没有遗留占用，且请求数与配置一致。
func TestRunAllWorkloads(t *testing.T) {
	r, p := newRunner(t, "single", "from", "batch", "parallel", "hold")
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Results, 5)

	want := map[string]int{
		"single":   2000,
		"from":     2000,
		"batch":    2000 * 10,
		"parallel": 2000,
		"hold":     2000,
	}
	total := 0
	for _, res := range rep.Results {
		require.Equal(t, want[res.Workload], res.Requests, res.Workload)
		total += res.Requests
	}
	require.Equal(t, total, rep.Requests)
	require.Zero(t, p.InUse())
	require.Equal(t, p.Allocated(), rep.Allocated)
	require.Less(t, rep.Allocated, rep.Requests)
	require.Positive(t, rep.Hits)
}

// TestFromWorkloadReusesSingleSize 验证带内容负载总是 62 字节，首次之后全部复用。
func TestFromWorkloadReusesSingleSize(t *testing.T) {
	r, p := newRunner(t, "from")
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, p.Allocated())
	require.Equal(t, uint64(1999), p.Stats().Hits)

	s := r.shuffled()
	require.Len(t, s, len(alphabet))
	for _, c := range alphabet {
		require.Contains(t, string(s), string(c))
	}
}

// TestRunStopsOnCancel 验证 ctx 取消后立即返回错误。
func TestRunStopsOnCancel(t *testing.T) {
	for _, w := range []string{"single", "from", "batch", "parallel", "hold"} {
		r, p := newRunner(t, w)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx)
		require.ErrorIs(t, err, context.Canceled, w)
		require.Zero(t, p.InUse(), w)
	}
}

// TestRunUninitializedPool 验证池未初始化时负载返回错误。
func TestRunUninitializedPool(t *testing.T) {
	cfg := config.DefaultConfig().Bench
	cfg.Workloads = []string{"single"}
	r := NewRunner(pool.New(pool.WithLogger(bplog.Discard())), cfg, bplog.Discard(), 1)
	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, pool.ErrNotInitialized)

	r.cfg.Workloads = []string{"compact"}
	_, err = r.Run(context.Background())
	require.Error(t, err)
}

// TestReportWriteTo 验证报告文本包含各负载与汇总行。
func TestReportWriteTo(t *testing.T) {
	rep := Report{
		Results:        []Result{{Workload: "single", Requests: 3}},
		Requests:       3,
		Allocated:      1,
		AllocatedBytes: 2048,
		Hits:           2,
		PeakRSS:        1 << 20,
	}
	var buf bytes.Buffer
	n, err := rep.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	out := buf.String()
	require.True(t, strings.Contains(out, "single:"), out)
	require.Contains(t, out, "1 buffers (2KiB) were allocated out of 3 buffer requests, 2 served by reuse.")
	require.Contains(t, out, "peak RSS: 1MiB")
}

// TestRunThroughTracker 验证经追踪器执行负载后没有遗留记录。
func TestRunThroughTracker(t *testing.T) {
	r, p := newRunner(t, "single", "batch", "parallel", "hold")
	tr := trace.New(p, nil)
	_, err := r.UseSource(tr).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, tr.Outstanding(0))
	require.Zero(t, p.InUse())
}
