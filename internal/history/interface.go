package history

import (
	"context"
	"time"
)

// Collector records the outcome of telemetry pushes.
type Collector interface {
	Record(ctx context.Context, record *PushRecord) error
	Close() error
}

// Repository defines the storage interface for push records.
type Repository interface {
	Record(record *PushRecord) error
	Close() error
}

// PushRecord is one telemetry push to one device screen.
type PushRecord struct {
	Timestamp      time.Time
	Address        string
	ScreenIndex    int
	CPUUsage       float64
	CPUTemperature *float64
	GPUTemperature *float64
	MemoryUsage    float64
	DiskUsage      float64
	Success        bool
}
