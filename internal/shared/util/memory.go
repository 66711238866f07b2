package util

import (
	"runtime"
)

// RuntimeStats is a process snapshot for health reporting.
type RuntimeStats struct {
	HeapAllocMB uint64
	Goroutines  int
}

func ReadRuntimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		HeapAllocMB: m.Alloc / 1024 / 1024,
		Goroutines:  runtime.NumGoroutine(),
	}
}
