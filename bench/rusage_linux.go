//go:build linux

package bench

import "golang.org/x/sys/unix"

// peakRSS 返回进程峰值常驻内存（字节）；Linux 上 Maxrss 单位为 KB。
func peakRSS() int64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return int64(ru.Maxrss) * 1024
}
