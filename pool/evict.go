package pool

import (
	"time"

	"github.com/sirupsen/logrus"

	"bufpool-x/status"
)

// Collect 立即执行一次回收，返回被回收的记录数。
// 与扩容后触发的惰性回收使用同一判据：DropOld 生效、阈值大于 0、
// 记录空闲且空闲时长超过阈值。占用中的记录永远不会被回收。
func (p *Pool) Collect() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return 0, ErrNotInitialized
	}
	if !p.policyLocked(status.PolicyDropOld) || p.cleanupTimeout <= 0 {
		return 0, nil
	}
	now := p.clock.Now()
	p.lastCleanupCheck = now
	return p.collectLocked(now), nil
}

// collectLocked 回收空闲超时的记录，调用方需持有 p.mu。
func (p *Pool) collectLocked(now time.Time) int {
	var victims []*Buffer
	for b := range p.registry {
		if !b.inUse && now.Sub(b.lastUsed) > p.cleanupTimeout {
			victims = append(victims, b)
		}
	}
	for _, b := range victims {
		p.index.Delete(b)
		delete(p.registry, b)
		p.stats.AllocatedBytes -= int64(b.allocated)
		b.drop()
	}
	p.stats.Evicted += uint64(len(victims))
	p.stats.Sweeps++

	if len(victims) > 0 {
		p.logger.WithFields(logrus.Fields{
			"evicted":   len(victims),
			"remaining": len(p.registry),
			"timeout":   p.cleanupTimeout.String(),
		}).Info("缓冲池回收空闲缓冲区")
	}
	return len(victims)
}
