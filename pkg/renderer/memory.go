package renderer

import (
	"fmt"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/df07/go-sphere-tracer/pkg/core"
)

// DefaultMemoryFraction is the share of available system memory a single allocation may claim
const DefaultMemoryFraction = 0.5

// SystemMemoryGuard returns an allocation check that refuses any single
// allocation larger than fraction of the currently available system memory.
func SystemMemoryGuard(fraction float64) core.AllocCheck {
	return func(bytes uint64) error {
		vm, err := mem.VirtualMemory()
		if err != nil {
			// Without memory information allocation failures are caught when they happen
			logger.Debugf("memory guard: %v", err)
			return nil
		}
		limit := uint64(float64(vm.Available) * fraction)
		if bytes > limit {
			return fmt.Errorf("%w: %d bytes requested, %d bytes allowed (%d available)",
				ErrResourceExhausted, bytes, limit, vm.Available)
		}
		return nil
	}
}

// LimitGuard returns an allocation check that refuses allocations above maxBytes
func LimitGuard(maxBytes uint64) core.AllocCheck {
	return func(bytes uint64) error {
		if bytes > maxBytes {
			return fmt.Errorf("%w: %d bytes requested, limit is %d", ErrResourceExhausted, bytes, maxBytes)
		}
		return nil
	}
}

// SystemInfo describes the machine frames are rendered on
type SystemInfo struct {
	CPU      string  `json:"cpu"`
	Cores    int     `json:"cores"`
	ClockGHz float64 `json:"clock_ghz"`
	TotalRAM uint64  `json:"total_ram"`
	FreeRAM  uint64  `json:"available_ram"`
}

// GetSystemInfo queries CPU and memory information
func GetSystemInfo() (SystemInfo, error) {
	cpuInfo, err := cpu.Info()
	if err != nil {
		return SystemInfo{}, err
	}
	if len(cpuInfo) == 0 {
		return SystemInfo{}, fmt.Errorf("no CPU information available")
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return SystemInfo{}, err
	}

	return SystemInfo{
		CPU:      cpuInfo[0].ModelName,
		Cores:    len(cpuInfo),
		ClockGHz: cpuInfo[0].Mhz / 1000,
		TotalRAM: memInfo.Total,
		FreeRAM:  memInfo.Available,
	}, nil
}
