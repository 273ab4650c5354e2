package pipeline

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/tripline/errors"
)

// MemorySnapshot is system memory at one point in time
type MemorySnapshot struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedPercent    float64
}

// AvailableMB returns available memory in megabytes
func (m MemorySnapshot) AvailableMB() uint64 {
	return m.AvailableBytes / 1024 / 1024
}

// readMemory samples system memory via gopsutil
func readMemory() (MemorySnapshot, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return MemorySnapshot{}, errors.Wrap(err, "failed to get memory stats")
	}
	return MemorySnapshot{
		TotalBytes:     v.Total,
		AvailableBytes: v.Available,
		UsedPercent:    v.UsedPercent,
	}, nil
}
