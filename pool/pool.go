// Package pool 提供进程级可复用堆缓冲池：按最小尺寸取用缓冲区、
// 显式归还后进入空闲集合，并可按空闲时长回收。
package pool

import (
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	bperrors "bufpool-x/errors"
	bplog "bufpool-x/log"
	"bufpool-x/status"
)

const indexDegree = 32

var (
	ErrNotInitialized = bperrors.New(bperrors.CodeNotInitialized, "buffer pool not initialized")
	ErrInvalidSize    = bperrors.New(bperrors.CodeInvalidSize, "buffer size must be positive")
)

// Option 调整 Pool 的可注入依赖。
type Option func(*Pool)

// WithClock 替换时钟（测试中用 fakeclock 驱动回收）。
func WithClock(c clock.Clock) Option {
	return func(p *Pool) { p.clock = c }
}

// WithLogger 替换日志输出。
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pool) { p.logger = l }
}

type Pool struct {
	clock  clock.Clock
	logger logrus.FieldLogger

	mu          sync.Mutex
	initialized bool
	nextID      uint64

	// index 持有全部记录（含占用中的），按容量升序
	index    *btree.BTree
	registry map[*Buffer]struct{}
	inUse    int

	policies         uint8
	cleanupTimeout   time.Duration
	lastCleanupCheck time.Time

	stats Stats
}

// New 创建一个尚未初始化的缓冲池；在调用 Initialize 之前取用会返回 ErrNotInitialized。
func New(opts ...Option) *Pool {
	p := &Pool{
		clock:    clock.NewClock(),
		logger:   bplog.L(),
		index:    btree.New(indexDegree),
		registry: make(map[*Buffer]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize 启用默认策略 ZeroBuffer 并允许取用。
// 之前通过 SetPolicy/SetCleanupTimeout 设置的状态保持不变。
func (p *Pool) Initialize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setPolicyLocked(status.PolicyZeroBuffer)
	p.initialized = true
}

// Reset 丢弃全部记录并恢复默认策略，用于测试隔离或受控的重新初始化。
// 不等待进行中的调用，不能与取用并发执行；此后旧句柄的归还均视为外来句柄。
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for b := range p.registry {
		b.drop()
	}
	p.registry = make(map[*Buffer]struct{})
	p.index.Clear(false)
	p.inUse = 0
	p.policies = 0
	p.setPolicyLocked(status.PolicyZeroBuffer)
	p.cleanupTimeout = 0
	p.lastCleanupCheck = time.Time{}
	p.stats = Stats{}
}

// SetCleanupTimeout 设置空闲回收阈值（秒），并自动启用 DropOld。
// seconds 为 0 时不再回收。
func (p *Pool) SetCleanupTimeout(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	p.cleanupTimeout = time.Duration(seconds) * time.Second
	p.lastCleanupCheck = p.clock.Now()
	p.setPolicyLocked(status.PolicyDropOld)
}

// CleanupTimeout 返回当前回收阈值。
func (p *Pool) CleanupTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupTimeout
}

// SetPolicy 启用一个或多个策略，已启用的策略保持不变。
func (p *Pool) SetPolicy(policies ...status.Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pol := range policies {
		p.setPolicyLocked(pol)
	}
}

// ClearPolicy 关闭指定策略。
func (p *Pool) ClearPolicy(policy status.Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bit := policy.Bit(); bit >= 0 {
		p.policies &^= 1 << bit
	}
}

// PolicyIsActive 判断策略是否生效。
func (p *Pool) PolicyIsActive(policy status.Policy) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policyLocked(policy)
}

func (p *Pool) setPolicyLocked(policy status.Policy) {
	if bit := policy.Bit(); bit >= 0 {
		p.policies |= 1 << bit
	}
}

func (p *Pool) policyLocked(policy status.Policy) bool {
	bit := policy.Bit()
	return bit >= 0 && p.policies&(1<<bit) != 0
}

// Acquire 取用一个容量不小于 minSize 的缓冲区并标记为占用。
// 参数：
// - minSize: 最小字节数（必须为正）
// 返回：
// - *Buffer: 句柄，Size() == minSize，Cap() >= minSize
// - error: ErrNotInitialized / ErrInvalidSize
func (p *Pool) Acquire(minSize int) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquireLocked(minSize)
}

// AcquireFrom 取用 len(data) 字节的缓冲区并把 data 拷入其中。
func (p *Pool) AcquireFrom(data []byte) (*Buffer, error) {
	return p.AcquireFromN(data, len(data))
}

// AcquireFromN 取用 size 字节的缓冲区并拷入 data 的前 size 字节。
// 返回：
// - error: size 超出 data 长度时返回 CodeCopyOverflow，此时不会占用任何缓冲区
func (p *Pool) AcquireFromN(data []byte, size int) (*Buffer, error) {
	if size > len(data) {
		return nil, bperrors.New(bperrors.CodeCopyOverflow, "copy size exceeds source length")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := p.acquireLocked(size)
	if err != nil {
		return nil, err
	}
	copy(b.storage, data[:size])
	return b, nil
}

func (p *Pool) acquireLocked(minSize int) (*Buffer, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	if minSize <= 0 {
		return nil, ErrInvalidSize
	}

	// 下界定位到第一个容量 >= minSize 的记录，再越过占用中的记录
	var found *Buffer
	p.index.AscendGreaterOrEqual(&Buffer{allocated: minSize}, func(it btree.Item) bool {
		b := it.(*Buffer)
		if b.inUse {
			return true
		}
		found = b
		return false
	})

	if found != nil {
		// 复用路径不清零
		found.inUse = true
		found.usageCount++
		found.dataSize = minSize
		p.inUse++
		p.stats.Hits++
		p.stats.InUseBytes += int64(found.allocated)
		return found, nil
	}

	p.nextID++
	b := &Buffer{
		id:         p.nextID,
		allocated:  minSize,
		dataSize:   minSize,
		inUse:      true,
		usageCount: 1,
		storage:    make([]byte, minSize),
	}
	// make 返回的内存已是零值，这里的 clear 只保证 ZeroBuffer 的语义不依赖分配方式；
	// 复用路径永远不清零
	if p.policyLocked(status.PolicyZeroBuffer) {
		clear(b.storage)
	}
	p.registry[b] = struct{}{}
	p.index.ReplaceOrInsert(b)
	p.inUse++
	p.stats.Misses++
	p.stats.AllocatedBytes += int64(minSize)
	p.stats.InUseBytes += int64(minSize)
	p.logger.WithFields(logrus.Fields{"id": b.id, "size": minSize, "allocated": len(p.registry)}).Debug("缓冲池扩容")

	if p.policyLocked(status.PolicyDropOld) && p.cleanupTimeout > 0 {
		now := p.clock.Now()
		if now.Sub(p.lastCleanupCheck) > p.cleanupTimeout {
			p.lastCleanupCheck = now
			p.collectLocked(now)
		}
	}
	return b, nil
}

// Release 归还一个缓冲区。空闲句柄、外来句柄与 nil 均静默忽略。
// 返回：
// - bool: 池未初始化时为 false，其余情况恒为 true
func (p *Pool) Release(b *Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return false
	}
	p.releaseLocked(b, p.clock.Now())
	return true
}

// ReleaseMany 在一次加锁内归还一批缓冲区，结果与逐个 Release 相同。
func (p *Pool) ReleaseMany(bs []*Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return false
	}
	now := p.clock.Now()
	for _, b := range bs {
		p.releaseLocked(b, now)
	}
	return true
}

func (p *Pool) releaseLocked(b *Buffer, now time.Time) {
	if b == nil || !b.inUse {
		return
	}
	if _, ok := p.registry[b]; !ok {
		return
	}
	b.inUse = false
	b.lastUsed = now
	p.inUse--
	p.stats.InUseBytes -= int64(b.allocated)
}

// IsInUse 判断句柄是否由本池管理且处于占用状态。
func (p *Pool) IsInUse(b *Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b == nil {
		return false
	}
	_, ok := p.registry[b]
	return ok && b.inUse
}

// InUse 返回占用中的缓冲区数量。
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Allocated 返回已分配（占用 + 空闲）的缓冲区数量。
func (p *Pool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.registry)
}
