package hostmon

import (
	"context"

	"codeberg.org/mutker/divoomctl/internal/logger"
	"codeberg.org/mutker/divoomctl/internal/sensors"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/singleflight"
)

type service struct {
	sources []sensors.Source
	flight  singleflight.Group
}

// NewService builds a Provider over the given sensor sources. Both the UI
// refresh path and the per-device sync ticks call GetMetrics independently;
// overlapping polls collapse into one hardware scan whose snapshot is
// shared by all waiters.
func NewService(sources ...sensors.Source) Provider {
	return &service{sources: sources}
}

func (s *service) GetMetrics(ctx context.Context) (*SystemMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.flight.Do("metrics", func() (interface{}, error) {
		// The poll is shared by every waiter, so it must not die with
		// whichever caller happened to trigger it.
		return s.collect(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	return v.(*SystemMetrics), nil
}

func (s *service) collect(ctx context.Context) (*SystemMetrics, error) {
	var components []sensors.Hardware
	for _, source := range s.sources {
		comps, err := source.Components(ctx)
		if err != nil {
			// One failing source must not spoil the rest
			logger.Debug().Err(err).Msg("Sensor source failed, skipping")
			continue
		}
		components = append(components, comps...)
	}

	summary := sensors.Aggregate(components)

	metrics := &SystemMetrics{
		CPUUsage:       summary.CPUUsage,
		CPUTemperature: summary.CPUTemperature,
		GPUTemperature: summary.GPUTemperature,
		Disks:          collectDisks(ctx),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logger.Debug().Err(err).Msg("Memory statistics unavailable")
	} else {
		metrics.MemoryTotal = vm.Total
		metrics.MemoryUsed = vm.Used
	}

	return metrics, nil
}

// collectDisks enumerates fixed, ready local volumes. A volume whose
// metadata cannot be read is skipped without aborting the rest.
func collectDisks(ctx context.Context) []DiskUsage {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		logger.Debug().Err(err).Msg("Volume enumeration unavailable")
		return nil
	}

	var disks []DiskUsage
	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			logger.Debug().Str("mountpoint", p.Mountpoint).Err(err).Msg("Skipping unreadable volume")
			continue
		}

		var usagePercent float64
		if usage.Total > 0 {
			usagePercent = float64(usage.Used) / float64(usage.Total) * 100
		}

		disks = append(disks, DiskUsage{
			Name:           p.Device,
			MountPoint:     p.Mountpoint,
			TotalSpace:     usage.Total,
			AvailableSpace: usage.Free,
			UsedSpace:      usage.Used,
			UsagePercent:   usagePercent,
		})
	}

	return disks
}
