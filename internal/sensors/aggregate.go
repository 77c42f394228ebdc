package sensors

import "strings"

// Temperatures outside this window indicate a disconnected or misreporting
// sensor and are rejected regardless of hardware kind.
const (
	minValidTemperature = -30.0
	maxValidTemperature = 200.0
)

// decision is the outcome of classifying one reading against the current
// aggregation state.
type decision int

const (
	reject decision = iota
	provisionalAccept
	authoritativeAccept
	fallbackAccept
)

// motherboardCPUHints marks motherboard temperature sensors that actually
// measure the CPU, used only when no CPU-kind sensor produced a value.
var motherboardCPUHints = []string{"cpu", "package", "tctl", "tdie", "processor"}

func validTemperature(value float64) bool {
	return value >= minValidTemperature && value <= maxValidTemperature
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// classifyCPUTemperature decides how a valid CPU temperature reading applies.
// Package and total sensors are authoritative and always overwrite; otherwise
// only the first valid reading is accepted, provisionally.
func classifyCPUTemperature(name string, chosen bool) decision {
	n := strings.ToLower(name)

	if strings.Contains(n, "package") || strings.Contains(n, "total") {
		return authoritativeAccept
	}
	if !chosen {
		return provisionalAccept
	}

	return reject
}

// classifyGPUTemperature decides how a valid GPU temperature reading applies.
// Core sensors (that are not memory sensors) are authoritative; memory and
// junction sensors never participate in normal selection and are kept only
// as a last-resort fallback.
func classifyGPUTemperature(name string, chosen bool) decision {
	n := strings.ToLower(name)

	if strings.Contains(n, "core") && !strings.Contains(n, "memory") {
		return authoritativeAccept
	}
	if strings.Contains(n, "memory") || strings.Contains(n, "junction") {
		return fallbackAccept
	}
	if !chosen {
		return provisionalAccept
	}

	return reject
}

// Aggregate reduces raw component readings into canonical host values.
// Components are scanned once, sensors in their reported order; it never
// fails, partial data simply leaves the optional fields unset.
func Aggregate(components []Hardware) Summary {
	var (
		summary     Summary
		cpuTemp     float64
		cpuChosen   bool
		gpuTemp     float64
		gpuChosen   bool
		gpuFallback *float64
		mbFallback  *float64
	)

	for _, hw := range components {
		for _, r := range hw.Sensors {
			switch {
			case hw.Kind == KindCPU && r.Kind == SensorLoad:
				// Per-core load sensors are deliberately not combined;
				// only the aggregate "total" sensor counts.
				if strings.Contains(strings.ToLower(r.Name), "total") {
					summary.CPUUsage = r.Value
				}

			case hw.Kind == KindCPU && r.Kind == SensorTemperature:
				if !validTemperature(r.Value) {
					continue
				}
				switch classifyCPUTemperature(r.Name, cpuChosen) {
				case authoritativeAccept, provisionalAccept:
					cpuTemp = r.Value
					cpuChosen = true
				}

			case hw.Kind.IsGPU() && r.Kind == SensorTemperature:
				if !validTemperature(r.Value) {
					continue
				}
				switch classifyGPUTemperature(r.Name, gpuChosen) {
				case authoritativeAccept, provisionalAccept:
					gpuTemp = r.Value
					gpuChosen = true
				case fallbackAccept:
					if gpuFallback == nil {
						v := r.Value
						gpuFallback = &v
					}
				}

			case hw.Kind == KindMotherboard && r.Kind == SensorTemperature:
				if mbFallback == nil && validTemperature(r.Value) &&
					containsAny(strings.ToLower(r.Name), motherboardCPUHints) {
					v := r.Value
					mbFallback = &v
				}
			}
		}
	}

	switch {
	case cpuChosen:
		summary.CPUTemperature = &cpuTemp
	case mbFallback != nil:
		summary.CPUTemperature = mbFallback
	}

	switch {
	case gpuChosen:
		summary.GPUTemperature = &gpuTemp
	case gpuFallback != nil:
		summary.GPUTemperature = gpuFallback
	}

	return summary
}
