package pool

import (
	"bufpool-x/config"
	"bufpool-x/status"
)

// Apply 按配置设置策略与回收阈值。
// 策略列表整体替换默认值；cleanup_timeout > 0 时会自动启用 DropOld。
func (p *Pool) Apply(cfg config.PoolConfig) {
	for _, pol := range status.Policies {
		p.ClearPolicy(pol)
	}
	p.SetPolicy(cfg.Policies...)
	if cfg.CleanupTimeout > 0 {
		p.SetCleanupTimeout(cfg.CleanupTimeout)
	}
}
