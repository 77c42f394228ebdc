package sensors

import (
	"context"
	"fmt"

	"codeberg.org/mutker/divoomctl/internal/errors"
	"codeberg.org/mutker/divoomctl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVMLSource reads core temperature and utilization from NVIDIA GPUs.
// Construction fails when no NVIDIA hardware is present; callers skip the
// source in that case.
type NVMLSource struct {
	devices []nvml.Device
}

func NewNVMLSource() (*NVMLSource, error) {
	errFactory := errors.New()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, errFactory.WithData(ErrNVMLInitFailed, nvml.ErrorString(ret))
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		nvml.Shutdown()
		return nil, errFactory.WithData(ErrNVMLDeviceCount, nvml.ErrorString(ret))
	}
	if count == 0 {
		nvml.Shutdown()
		return nil, errFactory.New(ErrNVMLNoDevices)
	}

	s := &NVMLSource{}
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			logger.Warn().Msgf("Failed to get handle for GPU %d: %v", i, nvml.ErrorString(ret))
			continue
		}
		if name, ret := device.GetName(); ret == nvml.SUCCESS {
			logger.Info().Msgf("Detected GPU: %v", name)
		}
		s.devices = append(s.devices, device)
	}

	if len(s.devices) == 0 {
		nvml.Shutdown()
		return nil, errFactory.New(ErrNVMLNoDevices)
	}

	return s, nil
}

func (s *NVMLSource) Components(_ context.Context) ([]Hardware, error) {
	var components []Hardware

	for i, device := range s.devices {
		hw := Hardware{Kind: KindGPUNvidia, Name: fmt.Sprintf("nvidia gpu %d", i)}

		if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			hw.Sensors = append(hw.Sensors, Reading{
				Kind:  SensorTemperature,
				Name:  "gpu core",
				Value: float64(temp),
			})
		}
		if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
			hw.Sensors = append(hw.Sensors, Reading{
				Kind:  SensorLoad,
				Name:  "gpu core",
				Value: float64(util.Gpu),
			})
		}

		if len(hw.Sensors) > 0 {
			components = append(components, hw)
		}
	}

	return components, nil
}

func (s *NVMLSource) Shutdown() error {
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return errors.New().WithData(ErrShutdownFailed, nvml.ErrorString(ret))
	}

	return nil
}
