package pool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Janitor 按固定间隔对缓冲池执行 Collect，弥补惰性回收在池不再扩容时永不触发的问题。
// 默认不启用；回收判据与惰性回收一致。
type Janitor struct {
	pool     *Pool
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor 创建周期回收器。
// 参数：
// - p: 目标缓冲池
// - interval: 回收间隔（必须为正）
func NewJanitor(p *Pool, interval time.Duration) *Janitor {
	return &Janitor{pool: p, interval: interval}
}

// Start 启动后台回收循环；重复调用无副作用。
// 返回：
// - error: 间隔非法时返回错误
func (j *Janitor) Start(ctx context.Context) error {
	if j.interval <= 0 {
		return fmt.Errorf("invalid sweep interval: %s", j.interval)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return nil
	}
	ctx, j.cancel = context.WithCancel(ctx)

	// ticker 在启动前创建，保证 Start 返回后时钟推进即可触发
	t := j.pool.clock.NewTicker(j.interval)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer t.Stop()
		j.loop(ctx, t.C())
	}()
	return nil
}

// Stop 停止回收循环并等待其退出（幂等）。
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

func (j *Janitor) loop(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if _, err := j.pool.Collect(); err != nil {
				j.pool.logger.WithError(err).Warn("周期回收失败")
			}
		}
	}
}
