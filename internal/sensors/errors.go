package sensors

import "codeberg.org/mutker/divoomctl/internal/errors"

const (
	ErrNVMLInitFailed  = errors.ErrorCode("sensors_nvml_init_failed")
	ErrNVMLDeviceCount = errors.ErrorCode("sensors_nvml_device_count_failed")
	ErrNVMLNoDevices   = errors.ErrorCode("sensors_nvml_no_devices")
	ErrShutdownFailed  = errors.ErrShutdownFailed
)
