package syncer

import (
	"fmt"
	"math"

	"codeberg.org/mutker/divoomctl/internal/hostmon"
)

// payloadFields is the fixed number of display slots on the telemetry clock.
const payloadFields = 6

// FormatPayload renders one metrics snapshot into the display strings the
// telemetry clock expects: CPU usage, GPU usage, CPU temperature, GPU
// temperature, memory usage and the fullest disk. The firmware has no GPU
// usage source here, so that slot is pinned to "0%". Missing temperatures
// render as "N/A".
func FormatPayload(m *hostmon.SystemMetrics) []string {
	payload := make([]string, 0, payloadFields)

	payload = append(payload,
		formatPercent(m.CPUUsage),
		"0%",
		formatTemperature(m.CPUTemperature),
		formatTemperature(m.GPUTemperature),
		formatPercent(m.MemoryUsagePercent()),
		formatPercent(hostmon.MaxDiskUsagePercent(m.Disks)),
	)

	return payload
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v)))
}

func formatTemperature(v *float64) string {
	if v == nil {
		return "N/A"
	}

	return fmt.Sprintf("%d C", int(math.Round(*v)))
}
