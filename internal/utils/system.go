package utils

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// GetSystemMemoryUsage returns host memory usage in percent.
func GetSystemMemoryUsage() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// GetSystemCPUUsage samples host CPU usage over a short interval.
func GetSystemCPUUsage() (float64, error) {
	percents, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// ProcessStatus describes the running server process.
type ProcessStatus struct {
	PID        int32   `json:"pid"`
	Goroutines int     `json:"goroutines"`
	HeapBytes  uint64  `json:"heap_bytes"`
	RSSBytes   uint64  `json:"rss_bytes"`
	NumCPU     int     `json:"num_cpu"`
	MemPercent float32 `json:"mem_percent"`
}

// GetProcessStatus reports runtime and OS level figures for this process.
// RSS and memory percent stay zero when the platform refuses to report them.
func GetProcessStatus() ProcessStatus {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	status := ProcessStatus{
		PID:        int32(os.Getpid()),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  ms.HeapAlloc,
		NumCPU:     runtime.NumCPU(),
	}

	p, err := process.NewProcess(status.PID)
	if err != nil {
		return status
	}
	if info, err := p.MemoryInfo(); err == nil && info != nil {
		status.RSSBytes = info.RSS
	}
	if pct, err := p.MemoryPercent(); err == nil {
		status.MemPercent = pct
	}
	return status
}
