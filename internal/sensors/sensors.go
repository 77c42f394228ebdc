package sensors

import "context"

// HardwareKind identifies the class of hardware a component belongs to.
// GPU vendors are distinct kinds because collectors report them separately,
// but aggregation treats them identically.
type HardwareKind int

const (
	KindUnknown HardwareKind = iota
	KindCPU
	KindGPUNvidia
	KindGPUAmd
	KindGPUIntel
	KindMotherboard
)

func (k HardwareKind) IsGPU() bool {
	return k == KindGPUNvidia || k == KindGPUAmd || k == KindGPUIntel
}

func (k HardwareKind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindGPUNvidia:
		return "gpu_nvidia"
	case KindGPUAmd:
		return "gpu_amd"
	case KindGPUIntel:
		return "gpu_intel"
	case KindMotherboard:
		return "motherboard"
	default:
		return "unknown"
	}
}

// SensorKind identifies what a reading measures.
type SensorKind int

const (
	SensorUnknown SensorKind = iota
	SensorTemperature
	SensorLoad
)

// Reading is a single raw sensor value as reported by a collector.
type Reading struct {
	Kind  SensorKind
	Name  string
	Value float64
}

// Hardware is one component with its sensor readings in reported order.
type Hardware struct {
	Kind    HardwareKind
	Name    string
	Sensors []Reading
}

// Source produces hardware components with their current readings.
// A source that cannot read some of its sensors returns what it has;
// a failing source is skipped by the caller, never fatal.
type Source interface {
	Components(ctx context.Context) ([]Hardware, error)
}

// Summary holds the canonical values reduced from all raw readings.
// Temperature fields are nil when no usable sensor was found.
type Summary struct {
	CPUUsage       float64
	CPUTemperature *float64
	GPUTemperature *float64
}
