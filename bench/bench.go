// Package bench 复现缓冲池的基准负载：随机尺寸取用/归还、带内容取用、批量归还，
// 以及并发与长持有两种扩展负载。
package bench

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/eapache/queue"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"bufpool-x/config"
	"bufpool-x/pool"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// 每隔多少次迭代检查一次 ctx
const ctxCheckEvery = 1024

type Result struct {
	Workload string
	Requests int
	Elapsed  time.Duration
}

type Report struct {
	Results        []Result
	Requests       int
	Allocated      int
	AllocatedBytes int64
	Hits           uint64
	PeakRSS        int64
}

// Source 是负载取用/归还缓冲区的入口；*pool.Pool 与 *trace.Tracker 均满足。
type Source interface {
	Acquire(minSize int) (*pool.Buffer, error)
	AcquireFrom(data []byte) (*pool.Buffer, error)
	Release(b *pool.Buffer) bool
	ReleaseMany(bs []*pool.Buffer) bool
}

type Runner struct {
	pool   *pool.Pool
	src    Source
	cfg    config.BenchConfig
	logger logrus.FieldLogger
	rng    *rand.Rand
}

// NewRunner 创建压测执行器。
// 参数：
// - p: 已初始化的缓冲池
// - cfg: 压测配置
// - logger: 日志输出
// - seed: 随机种子（尺寸与字符串打乱）
func NewRunner(p *pool.Pool, cfg config.BenchConfig, logger logrus.FieldLogger, seed int64) *Runner {
	return &Runner{pool: p, src: p, cfg: cfg, logger: logger, rng: rand.New(rand.NewSource(seed))}
}

// UseSource 让负载经由 s 取用/归还（如调用方追踪器），统计仍读自底层池。
func (r *Runner) UseSource(s Source) *Runner {
	r.src = s
	return r
}

// Run 依次执行配置中的负载并汇总报告。
// 返回：
// - Report: 各负载耗时与池状态
// - error: 未知负载、池错误或 ctx 取消
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var rep Report
	for _, name := range r.cfg.Workloads {
		var (
			res Result
			err error
		)
		switch name {
		case "single":
			res, err = r.runSingle(ctx)
		case "from":
			res, err = r.runFrom(ctx)
		case "batch":
			res, err = r.runBatch(ctx)
		case "parallel":
			res, err = r.runParallel(ctx)
		case "hold":
			res, err = r.runHold(ctx)
		default:
			err = fmt.Errorf("unknown workload: %q", name)
		}
		if err != nil {
			return rep, fmt.Errorf("workload %s: %w", name, err)
		}
		r.logger.WithFields(logrus.Fields{
			"workload":   res.Workload,
			"requests":   res.Requests,
			"elapsed_ms": res.Elapsed.Milliseconds(),
		}).Info("负载完成")
		rep.Results = append(rep.Results, res)
		rep.Requests += res.Requests
	}
	s := r.pool.Stats()
	rep.Allocated = s.Allocated
	rep.AllocatedBytes = s.AllocatedBytes
	rep.Hits = s.Hits
	rep.PeakRSS = peakRSS()
	return rep, nil
}

func (r *Runner) size() int {
	return r.rng.Intn(int(r.cfg.MaxSize.Int64())) + 1
}

// runSingle 计时单次取用与归还。
func (r *Runner) runSingle(ctx context.Context) (Result, error) {
	res := Result{Workload: "single"}
	for i := 0; i < r.cfg.Iterations; i++ {
		if err := checkCtx(ctx, i); err != nil {
			return res, err
		}
		n := r.size()
		start := time.Now()
		b, err := r.src.Acquire(n)
		if err != nil {
			return res, err
		}
		r.src.Release(b)
		res.Elapsed += time.Since(start)
		res.Requests++
	}
	return res, nil
}

// runFrom 计时带内容取用（随机打乱的字母数字串）与归还。
func (r *Runner) runFrom(ctx context.Context) (Result, error) {
	res := Result{Workload: "from"}
	for i := 0; i < r.cfg.Iterations; i++ {
		if err := checkCtx(ctx, i); err != nil {
			return res, err
		}
		s := r.shuffled()
		start := time.Now()
		b, err := r.src.AcquireFrom(s)
		if err != nil {
			return res, err
		}
		r.src.Release(b)
		res.Elapsed += time.Since(start)
		res.Requests++
	}
	return res, nil
}

// runBatch 只计时批量归还。
func (r *Runner) runBatch(ctx context.Context) (Result, error) {
	res := Result{Workload: "batch"}
	batch := make([]*pool.Buffer, r.cfg.Batch)
	for i := 0; i < r.cfg.Iterations; i++ {
		if err := checkCtx(ctx, i); err != nil {
			return res, err
		}
		for k := range batch {
			b, err := r.src.Acquire(r.size())
			if err != nil {
				r.src.ReleaseMany(batch[:k])
				return res, err
			}
			batch[k] = b
		}
		start := time.Now()
		r.src.ReleaseMany(batch)
		res.Elapsed += time.Since(start)
		res.Requests += len(batch)
	}
	return res, nil
}

// runParallel 把取用/归还分摊到 ants 协程池的 Workers 个任务上，计墙钟时间。
func (r *Runner) runParallel(ctx context.Context) (Result, error) {
	res := Result{Workload: "parallel"}
	workers := r.cfg.Workers
	wp, err := ants.NewPool(workers)
	if err != nil {
		return res, err
	}
	defer wp.Release()

	per := r.cfg.Iterations / workers
	if per == 0 {
		per = 1
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	maxSize := int(r.cfg.MaxSize.Int64())
	start := time.Now()
	for w := 0; w < workers; w++ {
		seed := r.rng.Int63()
		wg.Add(1)
		task := func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < per; i++ {
				if err := checkCtx(ctx, i); err != nil {
					fail(err)
					return
				}
				b, err := r.src.Acquire(rng.Intn(maxSize) + 1)
				if err != nil {
					fail(err)
					return
				}
				r.src.Release(b)
			}
		}
		if err := wp.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return res, err
		}
	}
	wg.Wait()
	res.Elapsed = time.Since(start)
	res.Requests = per * workers
	return res, firstErr
}

// runHold 保持最多 Hold 个未归还句柄（FIFO），新取用一个即归还最早的一个。
func (r *Runner) runHold(ctx context.Context) (Result, error) {
	res := Result{Workload: "hold"}
	q := queue.New()
	defer func() {
		for q.Length() > 0 {
			r.src.Release(q.Remove().(*pool.Buffer))
		}
	}()
	for i := 0; i < r.cfg.Iterations; i++ {
		if err := checkCtx(ctx, i); err != nil {
			return res, err
		}
		n := r.size()
		start := time.Now()
		b, err := r.src.Acquire(n)
		if err != nil {
			return res, err
		}
		q.Add(b)
		if q.Length() > r.cfg.Hold {
			r.src.Release(q.Remove().(*pool.Buffer))
		}
		res.Elapsed += time.Since(start)
		res.Requests++
	}
	return res, nil
}

func (r *Runner) shuffled() []byte {
	s := []byte(alphabet)
	r.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
	return s
}

func checkCtx(ctx context.Context, i int) error {
	if i%ctxCheckEvery != 0 {
		return nil
	}
	return ctx.Err()
}

// WriteTo 以文本形式输出报告。
func (rep Report) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...any) error {
		k, err := fmt.Fprintf(w, format, args...)
		n += int64(k)
		return err
	}
	for _, res := range rep.Results {
		if err := write("%10s: %s\n", res.Workload, res.Elapsed); err != nil {
			return n, err
		}
	}
	if err := write("\n%d buffers (%s) were allocated out of %d buffer requests, %d served by reuse.\n",
		rep.Allocated, units.BytesSize(float64(rep.AllocatedBytes)), rep.Requests, rep.Hits); err != nil {
		return n, err
	}
	if rep.PeakRSS > 0 {
		if err := write("peak RSS: %s\n", units.BytesSize(float64(rep.PeakRSS))); err != nil {
			return n, err
		}
	}
	return n, nil
}
