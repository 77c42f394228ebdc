package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codeberg.org/mutker/divoomctl/internal/errors"
	"codeberg.org/mutker/divoomctl/internal/logger"
)

const (
	// pcMonitorClockID selects the built-in PC monitor telemetry clock.
	pcMonitorClockID = 625

	// Devices answer LAN commands on their local HTTP endpoint almost
	// immediately; anything slower means the device is gone.
	commandTimeout = 500 * time.Millisecond
	cloudTimeout   = 10 * time.Second

	defaultCloudBaseURL = "https://app.divoom-gz.com"
)

// hardwareModels maps the cloud-reported Hardware code to a model name.
var hardwareModels = map[int]string{
	400: "Times Gate",
	401: "Pixoo 64",
	402: "Pixoo 16",
	403: "Ditoo Plus",
	404: "Timebox Evo",
}

type client struct {
	lan          *http.Client
	cloud        *http.Client
	cloudBaseURL string
}

// Option customizes a Client.
type Option func(*client)

// WithCloudBaseURL overrides the vendor cloud endpoint.
func WithCloudBaseURL(baseURL string) Option {
	return func(c *client) {
		c.cloudBaseURL = baseURL
	}
}

// WithCommandTimeout overrides the LAN command timeout.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(c *client) {
		c.lan.Timeout = timeout
	}
}

// NewClient builds a Client speaking the Divoom LAN and cloud HTTP protocol.
func NewClient(opts ...Option) Client {
	c := &client{
		lan:          &http.Client{Timeout: commandTimeout},
		cloud:        &http.Client{Timeout: cloudTimeout},
		cloudBaseURL: defaultCloudBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *client) Activate(ctx context.Context, address string, deviceID, lcdIndependence int64, screenIndex int) error {
	logger.Debug().
		Str("address", address).
		Int("screen", screenIndex).
		Msg("Activating telemetry clock")

	return c.sendCommand(ctx, address, map[string]interface{}{
		"Command":         "Channel/SetClockSelectId",
		"ClockId":         pcMonitorClockID,
		"LcdIndependence": lcdIndependence,
		"DeviceId":        deviceID,
		"LcdIndex":        screenIndex,
	})
}

func (c *client) Push(ctx context.Context, address string, screenIndex int, values []string) error {
	return c.sendCommand(ctx, address, map[string]interface{}{
		"Command": "Device/UpdatePCParaInfo",
		"ScreenList": []map[string]interface{}{
			{
				"LcdId":    screenIndex,
				"DispData": values,
			},
		},
	})
}

// sendCommand posts one JSON command to the device's LAN endpoint. The
// device always answers 200 with an error_code field; a non-zero code is
// a failure.
func (c *client) sendCommand(ctx context.Context, address string, command map[string]interface{}) error {
	errFactory := errors.New()

	body, err := json.Marshal(command)
	if err != nil {
		return errFactory.Wrap(ErrCommandFailed, err)
	}

	url := fmt.Sprintf("http://%s/post", address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrCommandFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.lan.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrCommandFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errFactory.WithMessage(ErrBadResponse,
			fmt.Sprintf("device returned HTTP %d", resp.StatusCode))
	}

	var reply struct {
		ErrorCode int `json:"error_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return errFactory.Wrap(ErrBadResponse, err)
	}
	if reply.ErrorCode != 0 {
		return errFactory.WithMessage(ErrDeviceReported,
			fmt.Sprintf("device reported error_code %d", reply.ErrorCode))
	}

	return nil
}

func (c *client) Discover(ctx context.Context) ([]Device, error) {
	errFactory := errors.New()

	url := c.cloudBaseURL + "/Device/ReturnSameLANDevice"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, errFactory.Wrap(ErrDiscoveryFailed, err)
	}

	resp, err := c.cloud.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(ErrDiscoveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errFactory.WithMessage(ErrDiscoveryFailed,
			fmt.Sprintf("cloud returned HTTP %d", resp.StatusCode))
	}

	var reply struct {
		DeviceList []struct {
			DeviceName      string `json:"DeviceName"`
			DeviceMac       string `json:"DeviceMac"`
			Hardware        int    `json:"Hardware"`
			DevicePrivateIP string `json:"DevicePrivateIP"`
			DeviceID        int64  `json:"DeviceId"`
		} `json:"DeviceList"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, errFactory.Wrap(ErrBadResponse, err)
	}

	devices := make([]Device, 0, len(reply.DeviceList))
	for _, d := range reply.DeviceList {
		deviceType := hardwareModels[d.Hardware]
		if deviceType == "" {
			deviceType = fmt.Sprintf("Unknown (%d)", d.Hardware)
		}

		devices = append(devices, Device{
			Name:       d.DeviceName,
			MACAddress: d.DeviceMac,
			DeviceType: deviceType,
			IPAddress:  d.DevicePrivateIP,
			DeviceID:   d.DeviceID,
		})
	}

	logger.Debug().Int("count", len(devices)).Msg("Discovered LAN devices")

	return devices, nil
}

func (c *client) GetLcdInfo(ctx context.Context, address string) (*LcdInfoResponse, error) {
	errFactory := errors.New()

	deviceID, err := c.resolveDeviceID(ctx, address)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/Channel/Get5LcdInfoV2?DeviceType=LCD&DeviceId=%d", c.cloudBaseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errFactory.Wrap(ErrCommandFailed, err)
	}

	resp, err := c.cloud.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(ErrCommandFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, errFactory.WithMessage(ErrBadResponse,
			fmt.Sprintf("cloud returned HTTP %d", resp.StatusCode))
	}

	var reply struct {
		LcdIndependenceList []struct {
			LcdIndependence int64 `json:"LcdIndependence"`
			LcdList         []struct {
				LcdClockID int64 `json:"LcdClockId"`
			} `json:"LcdList"`
		} `json:"LcdIndependenceList"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, errFactory.Wrap(ErrBadResponse, err)
	}

	info := &LcdInfoResponse{DeviceID: deviceID}
	for _, group := range reply.LcdIndependenceList {
		screens := make([]LcdInfo, 0, len(group.LcdList))
		for _, screen := range group.LcdList {
			screens = append(screens, LcdInfo{LcdClockID: screen.LcdClockID})
		}
		info.IndependenceList = append(info.IndependenceList, LcdIndependenceInfo{
			LcdIndependence: group.LcdIndependence,
			LcdList:         screens,
		})
	}

	return info, nil
}

// resolveDeviceID finds the cloud device id for a LAN address. The cloud
// only keys screen layout queries by device id, never by address.
func (c *client) resolveDeviceID(ctx context.Context, address string) (int64, error) {
	devices, err := c.Discover(ctx)
	if err != nil {
		return 0, err
	}

	for _, d := range devices {
		if d.IPAddress == address {
			return d.DeviceID, nil
		}
	}

	return 0, errors.New().WithMessage(ErrDeviceNotFound,
		fmt.Sprintf("no device with address %s on LAN", address))
}
