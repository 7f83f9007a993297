//go:build !linux

package bench

func peakRSS() int64 { return 0 }
