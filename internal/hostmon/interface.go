package hostmon

import "context"

// Provider exposes the latest canonical host metrics. GetMetrics triggers a
// fresh hardware poll and returns an immutable snapshot; concurrent callers
// are safe and may share one in-flight poll.
type Provider interface {
	GetMetrics(ctx context.Context) (*SystemMetrics, error)
}

// SystemMetrics is one canonical snapshot of the host. It is only ever
// written during collection; consumers must treat it as read-only.
type SystemMetrics struct {
	CPUUsage       float64     `json:"cpu_usage"`
	CPUTemperature *float64    `json:"cpu_temperature,omitempty"`
	GPUTemperature *float64    `json:"gpu_temperature,omitempty"`
	MemoryTotal    uint64      `json:"memory_total"`
	MemoryUsed     uint64      `json:"memory_used"`
	Disks          []DiskUsage `json:"disks"`
}

// DiskUsage describes one fixed local volume.
type DiskUsage struct {
	Name           string  `json:"name"`
	MountPoint     string  `json:"mount_point"`
	TotalSpace     uint64  `json:"total_space"`
	AvailableSpace uint64  `json:"available_space"`
	UsedSpace      uint64  `json:"used_space"`
	UsagePercent   float64 `json:"usage_percent"`
}

// MaxDiskUsagePercent returns the highest usage percentage across the
// given volumes, 0 when there are none.
func MaxDiskUsagePercent(disks []DiskUsage) float64 {
	var maxUsage float64
	for _, d := range disks {
		if d.UsagePercent > maxUsage {
			maxUsage = d.UsagePercent
		}
	}

	return maxUsage
}

// MemoryUsagePercent returns used memory as a percentage of total,
// 0 when total is 0.
func (m *SystemMetrics) MemoryUsagePercent() float64 {
	if m.MemoryTotal == 0 {
		return 0
	}

	return float64(m.MemoryUsed) / float64(m.MemoryTotal) * 100
}
