package device

import "context"

// Client exposes the LAN and cloud operations of Divoom LCD devices used by
// the sync engine. All calls are synchronous; failures are plain errors.
type Client interface {
	// Discover lists Divoom devices on the same LAN via the vendor cloud.
	Discover(ctx context.Context) ([]Device, error)

	// GetLcdInfo returns the screen/independence layout of the device at
	// the given LAN address.
	GetLcdInfo(ctx context.Context, address string) (*LcdInfoResponse, error)

	// Activate switches one screen of an independence group into the PC
	// monitor telemetry clock so that it accepts pushed metric strings.
	Activate(ctx context.Context, address string, deviceID, lcdIndependence int64, screenIndex int) error

	// Push sends the formatted metric strings to one screen.
	Push(ctx context.Context, address string, screenIndex int, values []string) error
}

// Device is one discovered Divoom device.
type Device struct {
	Name       string
	MACAddress string
	DeviceType string
	IPAddress  string
	DeviceID   int64
}

// LcdInfo identifies the clock currently selected on one screen.
type LcdInfo struct {
	LcdClockID int64
}

// LcdIndependenceInfo is a device-reported group of screens sharing one
// configuration context on multi-screen devices.
type LcdIndependenceInfo struct {
	LcdIndependence int64
	LcdList         []LcdInfo
}

// LcdInfoResponse is the device-reported screen layout.
type LcdInfoResponse struct {
	DeviceID         int64
	IndependenceList []LcdIndependenceInfo
}
