package syncer

import "codeberg.org/mutker/divoomctl/internal/errors"

const (
	ErrScreenOutOfRange = errors.ErrorCode("syncer_screen_out_of_range")
	ErrRestoreFailed    = errors.ErrRestoreDevices
)
