// Package trace 为缓冲池句柄记录取用方调用位置，用于排查未归还的缓冲区。
// 它只包装 pool.Pool 的公开操作，不改变池的语义。
package trace

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/sirupsen/logrus"

	"bufpool-x/pool"
)

// Site 是一个未归还句柄的取用位置。
type Site struct {
	ID       uint64
	Size     int
	Function string
	File     string
	Line     int
	Since    time.Time

	// uses 是记录时句柄的取用次数，用于识别被他人重新取用的记录
	uses uint64
}

type Tracker struct {
	pool  *pool.Pool
	clock clock.Clock

	mu    sync.Mutex
	sites map[*pool.Buffer]Site
}

// New 创建调用方追踪器。
// 参数：
// - p: 被包装的缓冲池
// - c: 时钟（nil 时使用系统时钟）
func New(p *pool.Pool, c clock.Clock) *Tracker {
	if c == nil {
		c = clock.NewClock()
	}
	return &Tracker{pool: p, clock: c, sites: make(map[*pool.Buffer]Site)}
}

// Acquire 等同于 pool.Acquire，并记录调用方位置。
func (t *Tracker) Acquire(minSize int) (*pool.Buffer, error) {
	b, err := t.pool.Acquire(minSize)
	if err != nil {
		return nil, err
	}
	t.record(b)
	return b, nil
}

// AcquireFrom 等同于 pool.AcquireFrom，并记录调用方位置。
func (t *Tracker) AcquireFrom(data []byte) (*pool.Buffer, error) {
	b, err := t.pool.AcquireFrom(data)
	if err != nil {
		return nil, err
	}
	t.record(b)
	return b, nil
}

// Release 归还缓冲区并清除其记录。
func (t *Tracker) Release(b *pool.Buffer) bool {
	t.mu.Lock()
	delete(t.sites, b)
	t.mu.Unlock()
	return t.pool.Release(b)
}

// ReleaseMany 批量归还并清除记录。
func (t *Tracker) ReleaseMany(bs []*pool.Buffer) bool {
	t.mu.Lock()
	for _, b := range bs {
		delete(t.sites, b)
	}
	t.mu.Unlock()
	return t.pool.ReleaseMany(bs)
}

// record 记录 Tracker 调用方（跳过 record 与 Acquire* 两层）。
func (t *Tracker) record(b *pool.Buffer) {
	uses, _ := t.pool.UsageOf(b)
	s := Site{ID: b.ID(), Size: b.Size(), Since: t.clock.Now(), uses: uses}
	if pc, file, line, ok := runtime.Caller(2); ok {
		s.File, s.Line = file, line
		if fn := runtime.FuncForPC(pc); fn != nil {
			s.Function = fn.Name()
		}
	}
	t.mu.Lock()
	t.sites[b] = s
	t.mu.Unlock()
}

// Outstanding 返回持有时间不少于 olderThan 的未归还句柄，按取用时间升序。
// 绕过 Tracker 直接归还的句柄会在此被清理；归还后又被直接取用的记录，
// 取用次数已变化，同样清理而不归咎于原调用方。
func (t *Tracker) Outstanding(olderThan time.Duration) []Site {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Site
	for b, s := range t.sites {
		uses, inUse := t.pool.UsageOf(b)
		if !inUse || uses != s.uses {
			delete(t.sites, b)
			continue
		}
		if now.Sub(s.Since) >= olderThan {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Since.Equal(out[j].Since) {
			return out[i].Since.Before(out[j].Since)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Report 以 Warn 级别逐条输出疑似泄漏的句柄，返回条数。
func (t *Tracker) Report(logger logrus.FieldLogger, olderThan time.Duration) int {
	sites := t.Outstanding(olderThan)
	now := t.clock.Now()
	for _, s := range sites {
		logger.WithFields(logrus.Fields{
			"id":     s.ID,
			"size":   s.Size,
			"func":   s.Function,
			"file":   s.File,
			"line":   s.Line,
			"held_s": now.Sub(s.Since).Seconds(),
		}).Warn("缓冲区长时间未归还")
	}
	return len(sites)
}
