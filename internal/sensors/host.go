package sensors

import (
	"context"
	"strings"

	"codeberg.org/mutker/divoomctl/internal/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// HostSource reads the global CPU load and the platform temperature sensors.
type HostSource struct{}

func NewHostSource() *HostSource {
	return &HostSource{}
}

func (s *HostSource) Components(ctx context.Context) ([]Hardware, error) {
	cpuHW := Hardware{Kind: KindCPU, Name: "cpu"}
	gpuHW := Hardware{Kind: KindGPUAmd, Name: "gpu"}
	mbHW := Hardware{Kind: KindMotherboard, Name: "motherboard"}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		logger.Debug().Err(err).Msg("CPU usage unavailable")
	} else if len(percents) > 0 {
		cpuHW.Sensors = append(cpuHW.Sensors, Reading{
			Kind:  SensorLoad,
			Name:  "cpu total",
			Value: percents[0],
		})
	}

	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		// gopsutil reports partial failures as a warning error while
		// still returning the sensors it could read
		logger.Debug().Err(err).Msg("Some temperature sensors could not be read")
	}

	for _, t := range temps {
		reading := Reading{
			Kind:  SensorTemperature,
			Name:  t.SensorKey,
			Value: t.Temperature,
		}
		switch classifySensorKey(t.SensorKey) {
		case KindCPU:
			cpuHW.Sensors = append(cpuHW.Sensors, reading)
		case KindGPUAmd:
			gpuHW.Sensors = append(gpuHW.Sensors, reading)
		default:
			mbHW.Sensors = append(mbHW.Sensors, reading)
		}
	}

	var components []Hardware
	for _, hw := range []Hardware{cpuHW, gpuHW, mbHW} {
		if len(hw.Sensors) > 0 {
			components = append(components, hw)
		}
	}

	return components, nil
}

// classifySensorKey maps a platform sensor key (coretemp_package_id_0,
// k10temp_tctl, amdgpu_edge, ...) to the hardware kind it measures.
func classifySensorKey(key string) HardwareKind {
	k := strings.ToLower(key)

	switch {
	case containsAny(k, []string{"coretemp", "k10temp", "zenpower", "cpu"}):
		return KindCPU
	case containsAny(k, []string{"amdgpu", "radeon", "nouveau", "gpu"}):
		return KindGPUAmd
	default:
		return KindMotherboard
	}
}
