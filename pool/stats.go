package pool

import (
	"time"

	"github.com/google/btree"

	"bufpool-x/status"
)

// Stats 是缓冲池的累计计数，均在池锁内维护。
type Stats struct {
	Allocated int `json:"allocated"`
	InUse     int `json:"in_use"`

	Hits    uint64 `json:"hits"`   // 复用已有缓冲区
	Misses  uint64 `json:"misses"` // 新分配
	Evicted uint64 `json:"evicted"`
	Sweeps  uint64 `json:"sweeps"`

	AllocatedBytes int64 `json:"allocated_bytes"`
	InUseBytes     int64 `json:"in_use_bytes"`
}

// Stats 返回当前计数快照。
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *Pool) statsLocked() Stats {
	s := p.stats
	s.Allocated = len(p.registry)
	s.InUse = p.inUse
	return s
}

type BufferInfo struct {
	ID         uint64              `json:"id"`
	Allocated  int                 `json:"allocated"`
	DataSize   int                 `json:"data_size"`
	UsageCount uint64              `json:"usage_count"`
	LastUsed   time.Time           `json:"last_used"`
	Status     status.BufferStatus `json:"status"`
}

type Snapshot struct {
	Stats   Stats        `json:"stats"`
	Buffers []BufferInfo `json:"buffers"`
}

// Snapshot 返回全部记录的逐条信息，按容量升序（同容量按 ID）。
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Stats:   p.statsLocked(),
		Buffers: make([]BufferInfo, 0, p.index.Len()),
	}
	p.index.Ascend(func(it btree.Item) bool {
		b := it.(*Buffer)
		s.Buffers = append(s.Buffers, BufferInfo{
			ID:         b.id,
			Allocated:  b.allocated,
			DataSize:   b.dataSize,
			UsageCount: b.usageCount,
			LastUsed:   b.lastUsed,
			Status:     b.status(),
		})
		return true
	})
	return s
}

// UsageOf 在池锁内读取句柄的取用次数与占用状态。
// 外来句柄返回 (0, false)。
func (p *Pool) UsageOf(b *Buffer) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b == nil {
		return 0, false
	}
	if _, ok := p.registry[b]; !ok {
		return 0, false
	}
	return b.usageCount, b.inUse
}
