package device

import "codeberg.org/mutker/divoomctl/internal/errors"

const (
	ErrCommandFailed   = errors.ErrorCode("device_command_failed")
	ErrBadResponse     = errors.ErrorCode("device_bad_response")
	ErrDeviceReported  = errors.ErrorCode("device_reported_error")
	ErrDiscoveryFailed = errors.ErrorCode("device_discovery_failed")
	ErrDeviceNotFound  = errors.ErrorCode("device_not_found")
)
