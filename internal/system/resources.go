package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// frameBudget is the memory one in-flight raster worker may hold (two RGBA
// buffers at 4K plus encoder slack).
const frameBudget = 96 << 20

// Workers picks a rasterization worker count from the logical CPU count,
// capped so that the in-flight frames fit into half of the available memory.
func Workers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
		byMemory := int(vm.Available / 2 / frameBudget)
		if byMemory < n {
			n = byMemory
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
