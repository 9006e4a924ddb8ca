package miner

import (
	"time"

	"github.com/boomstarternetwork/gominer/internal/work"
)

// BenchmarkWork synthesizes a fixed offline Work for --benchmark mode, per
// spec.md §6 and cpu-miner.c's opt_benchmark branch of get_work: a header
// filled with 0x55 bytes, the current time, and the easiest possible
// target, so the worker loop exercises the full scan path without any
// network dependency.
func BenchmarkWork() *work.Work {
	w := &work.Work{}
	for i := 0; i <= 16; i++ {
		w.Data[i] = 0x55555555
	}
	w.Data[17] = uint32(time.Now().Unix())
	w.Data[18] = 0x1d00ffff
	w.Data[19] = 0
	w.PreparePadding()

	for i := range w.Target {
		w.Target[i] = 0xffffffff
	}
	return w
}
