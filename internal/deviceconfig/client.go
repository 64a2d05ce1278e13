package deviceconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/version"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// maxBodySize bounds how much of a configuration response is read
	maxBodySize = 1 << 20
)

// NameUpdater applies a reloaded device name. The registry implements it so
// renames reach its observers.
type NameUpdater interface {
	UpdateName(address, name string) (*discovery.Device, bool)
}

// Client talks to the HTTP control API of a single LED controller.
//
// Every call is a request against the device; nothing is cached. Client is
// safe for concurrent use.
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.1.40:8080")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	device  *discovery.Device
	updater NameUpdater
}

// NewClient creates a control client bound to a discovered device.
// Reloads update the device name directly unless WithNameUpdater is used.
func NewClient(device *discovery.Device) *Client {
	return &Client{
		BaseURL:    device.BaseURL(),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		device:     device,
	}
}

// WithNameUpdater routes reloaded names through u and returns c
func (c *Client) WithNameUpdater(u NameUpdater) *Client {
	c.updater = u
	return c
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Device returns the bound device, or nil
func (c *Client) Device() *discovery.Device {
	return c.device
}

func (c *Client) deviceAddress() string {
	if c.device != nil {
		return c.device.Address()
	}
	if u, err := url.Parse(c.BaseURL); err == nil {
		return u.Hostname()
	}
	return ""
}

// do sends a bodiless request and returns the response for the caller to close.
// Transport failures are returned as classified DeviceErrors.
func (c *Client) do(ctx context.Context, op, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err, c.deviceAddress())
	}
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metricRequests.WithLabelValues(op, outcomeError).Inc()
		logging.Named("deviceconfig").Debug("Device request failed",
			zap.String("method", method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, NewNetworkError(fmt.Sprintf("%s request failed", method), err, c.deviceAddress())
	}

	logging.LogDeviceRequest(method, req.URL.String(), resp.StatusCode, time.Since(start))
	return resp, nil
}

// GetConfiguration fetches the full device configuration via GET /config.
// A non-2xx status is an HTTP error; a body that is not a JSON object is a
// parse error.
func (c *Client) GetConfiguration(ctx context.Context) (Configuration, error) {
	resp, err := c.do(ctx, opGetConfig, http.MethodGet, "/config")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metricRequests.WithLabelValues(opGetConfig, outcomeRejected).Inc()
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		metricRequests.WithLabelValues(opGetConfig, outcomeError).Inc()
		return nil, NewNetworkError("failed to read response body", err, c.deviceAddress())
	}

	config, err := ParseConfiguration(body)
	if err != nil {
		metricRequests.WithLabelValues(opGetConfig, outcomeError).Inc()
		return nil, err
	}

	metricRequests.WithLabelValues(opGetConfig, outcomeOK).Inc()
	return config, nil
}

// ReloadConfiguration fetches the configuration and applies its device_name
// to the bound device. This is the only path by which a device name changes
// after discovery. On any failure the device is left unchanged.
func (c *Client) ReloadConfiguration(ctx context.Context) error {
	if c.device == nil {
		return NewValidationError("client is not bound to a discovered device")
	}

	config, err := c.GetConfiguration(ctx)
	if err != nil {
		return err
	}

	name, ok := config.DeviceName()
	if !ok {
		return NewParseError("configuration has no string device_name", nil)
	}

	if c.updater != nil {
		if d, found := c.updater.UpdateName(c.device.Address(), name); found && d == c.device {
			return nil
		}
	}
	// No registry, or the entry was cleared or replaced since this client was made
	c.device.SetName(name)
	return nil
}

// SetConfigurationValue sets one configuration key via
// PUT /config/{key}?value={value}.
//
// accepted is true only for HTTP 200, in which case the configuration is
// reloaded so the local name reflects what the device stored; a reload
// failure is returned as err alongside accepted=true. Any other status is a
// rejection: (false, nil). Transport failures return (false, err).
func (c *Client) SetConfigurationValue(ctx context.Context, key, value string) (accepted bool, err error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	path := "/config/" + url.PathEscape(key) + "?value=" + url.QueryEscape(value)
	resp, err := c.do(ctx, opSetValue, http.MethodPut, path)
	if err != nil {
		return false, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metricRequests.WithLabelValues(opSetValue, outcomeRejected).Inc()
		logging.Named("deviceconfig").Info("Device rejected configuration change",
			zap.String("key", key),
			zap.Int("status", resp.StatusCode),
		)
		return false, nil
	}
	metricRequests.WithLabelValues(opSetValue, outcomeOK).Inc()

	if c.device == nil {
		return true, nil
	}
	if err := c.ReloadConfiguration(ctx); err != nil {
		return true, fmt.Errorf("value accepted but reload failed: %w", err)
	}
	return true, nil
}

// ToggleMode switches the device operating mode via POST /mode/toggle.
// It reports whether the device answered 200. Local state is not touched;
// reload separately if the display needs refreshing.
func (c *Client) ToggleMode(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, opToggle, http.MethodPost, "/mode/toggle")
	if err != nil {
		return false, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metricRequests.WithLabelValues(opToggle, outcomeRejected).Inc()
		return false, nil
	}
	metricRequests.WithLabelValues(opToggle, outcomeOK).Inc()
	return true, nil
}
