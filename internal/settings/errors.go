package settings

import "codeberg.org/mutker/divoomctl/internal/errors"

const (
	ErrOpenFailed = errors.ErrorCode("settings_open_failed")
	ErrSaveFailed = errors.ErrorCode("settings_save_failed")
	ErrLoadFailed = errors.ErrorCode("settings_load_failed")
)
