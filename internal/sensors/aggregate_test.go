package sensors_test

import (
	"testing"

	"codeberg.org/mutker/divoomctl/internal/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cpuComponent(readings ...sensors.Reading) sensors.Hardware {
	return sensors.Hardware{Kind: sensors.KindCPU, Name: "cpu", Sensors: readings}
}

func gpuComponent(kind sensors.HardwareKind, readings ...sensors.Reading) sensors.Hardware {
	return sensors.Hardware{Kind: kind, Name: "gpu", Sensors: readings}
}

func temp(name string, value float64) sensors.Reading {
	return sensors.Reading{Kind: sensors.SensorTemperature, Name: name, Value: value}
}

func load(name string, value float64) sensors.Reading {
	return sensors.Reading{Kind: sensors.SensorLoad, Name: name, Value: value}
}

func TestAggregatePackageOverridesProvisional(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(temp("CPU Core #1", 40), temp("CPU Package", 55)),
	})

	require.NotNil(t, summary.CPUTemperature)
	assert.InDelta(t, 55, *summary.CPUTemperature, 0.001)
}

func TestAggregateLastAuthoritativeWins(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(temp("CPU Package", 50), temp("CPU Total", 62)),
	})

	require.NotNil(t, summary.CPUTemperature)
	assert.InDelta(t, 62, *summary.CPUTemperature, 0.001)
}

func TestAggregateProvisionalKeptWithoutAuthoritative(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(temp("CPU Core #1", 41), temp("CPU Core #2", 48)),
	})

	require.NotNil(t, summary.CPUTemperature)
	assert.InDelta(t, 41, *summary.CPUTemperature, 0.001, "first valid reading stays provisional")
}

func TestAggregateRejectsOutOfRangeTemperatures(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(temp("CPU Package", 255), temp("CPU Core #1", -60)),
		gpuComponent(sensors.KindGPUNvidia, temp("GPU Core", 300)),
	})

	assert.Nil(t, summary.CPUTemperature)
	assert.Nil(t, summary.GPUTemperature)
}

func TestAggregateBoundaryTemperaturesAreValid(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(temp("CPU Package", 200)),
		gpuComponent(sensors.KindGPUAmd, temp("GPU Core", -30)),
	})

	require.NotNil(t, summary.CPUTemperature)
	assert.InDelta(t, 200, *summary.CPUTemperature, 0.001)
	require.NotNil(t, summary.GPUTemperature)
	assert.InDelta(t, -30, *summary.GPUTemperature, 0.001)
}

func TestAggregateGPUCoreOverridesMemoryJunction(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		gpuComponent(sensors.KindGPUNvidia, temp("GPU Memory Junction", 70), temp("GPU Core", 60)),
	})

	require.NotNil(t, summary.GPUTemperature)
	assert.InDelta(t, 60, *summary.GPUTemperature, 0.001)
}

func TestAggregateGPUMemoryJunctionFallback(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		gpuComponent(sensors.KindGPUNvidia, temp("GPU Memory Junction", 70)),
	})

	require.NotNil(t, summary.GPUTemperature)
	assert.InDelta(t, 70, *summary.GPUTemperature, 0.001, "fallback used when no core sensor exists")
}

func TestAggregateGPUVendorsTreatedIdentically(t *testing.T) {
	for _, kind := range []sensors.HardwareKind{
		sensors.KindGPUNvidia, sensors.KindGPUAmd, sensors.KindGPUIntel,
	} {
		summary := sensors.Aggregate([]sensors.Hardware{
			gpuComponent(kind, temp("GPU Hot Spot", 80), temp("GPU Core", 65)),
		})

		require.NotNil(t, summary.GPUTemperature, kind.String())
		assert.InDelta(t, 65, *summary.GPUTemperature, 0.001, kind.String())
	}
}

func TestAggregateCPUUsageFromTotalSensor(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(
			load("CPU Core #1", 93.0),
			load("CPU Total", 37.5),
			load("CPU Core #2", 5.0),
		),
	})

	assert.InDelta(t, 37.5, summary.CPUUsage, 0.001, "per-core loads are never combined")
}

func TestAggregateCPUUsageZeroWithoutTotalSensor(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(load("CPU Core #1", 93.0)),
	})

	assert.Zero(t, summary.CPUUsage)
}

func TestAggregateMotherboardFallback(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(load("CPU Total", 10)),
		{
			Kind: sensors.KindMotherboard,
			Name: "motherboard",
			Sensors: []sensors.Reading{
				temp("System", 38),
				temp("CPU Socket", 52),
				temp("Tctl", 54),
			},
		},
	})

	require.NotNil(t, summary.CPUTemperature)
	assert.InDelta(t, 52, *summary.CPUTemperature, 0.001, "first matching motherboard sensor wins")
}

func TestAggregateMotherboardIgnoredWhenCPUSensorExists(t *testing.T) {
	summary := sensors.Aggregate([]sensors.Hardware{
		cpuComponent(temp("CPU Package", 47)),
		{
			Kind:    sensors.KindMotherboard,
			Name:    "motherboard",
			Sensors: []sensors.Reading{temp("CPU Socket", 60)},
		},
	})

	require.NotNil(t, summary.CPUTemperature)
	assert.InDelta(t, 47, *summary.CPUTemperature, 0.001)
}

func TestAggregateEmptyInput(t *testing.T) {
	summary := sensors.Aggregate(nil)

	assert.Zero(t, summary.CPUUsage)
	assert.Nil(t, summary.CPUTemperature)
	assert.Nil(t, summary.GPUTemperature)
}
