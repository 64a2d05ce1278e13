package emulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

const (
	ModeStatic = "static"
	ModeCycle  = "cycle"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Device is an emulated LED controller
type Device struct {
	mu         sync.RWMutex
	name       string
	mode       string
	brightness int
	color      string

	logger *zap.Logger
}

// NewDevice creates an emulated controller called name
func NewDevice(name string) *Device {
	return &Device{
		name:       name,
		mode:       ModeStatic,
		brightness: 128,
		color:      "#ffffff",
		logger:     logging.Named("emulator"),
	}
}

// Name returns the current device name
func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// Mode returns the current operating mode
func (d *Device) Mode() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// Config returns the configuration as served by GET /config
func (d *Device) Config() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]any{
		deviceconfig.KeyDeviceName: d.name,
		deviceconfig.KeyMode:       d.mode,
		deviceconfig.KeyBrightness: d.brightness,
		deviceconfig.KeyColor:      d.color,
	}
}

// errUnknownKey marks a key the controller does not have
var errUnknownKey = fmt.Errorf("unknown key")

// Set applies one configuration value
func (d *Device) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch key {
	case deviceconfig.KeyDeviceName:
		if err := deviceconfig.ValidateDeviceName(value); err != nil {
			return err
		}
		d.name = value
	case deviceconfig.KeyMode:
		if value != ModeStatic && value != ModeCycle {
			return fmt.Errorf("mode must be %s or %s", ModeStatic, ModeCycle)
		}
		d.mode = value
	case deviceconfig.KeyBrightness:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 255 {
			return fmt.Errorf("brightness must be 0-255")
		}
		d.brightness = n
	case deviceconfig.KeyColor:
		if !hexColor.MatchString(value) {
			return fmt.Errorf("color must be #rrggbb")
		}
		d.color = strings.ToLower(value)
	default:
		return errUnknownKey
	}
	return nil
}

// Toggle switches between static and cycle mode and returns the new mode
func (d *Device) Toggle() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == ModeStatic {
		d.mode = ModeCycle
	} else {
		d.mode = ModeStatic
	}
	return d.mode
}

// Handler returns the controller HTTP API
func (d *Device) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/config", d.getConfig)
	router.PUT("/config/:key", d.putConfig)
	router.POST("/mode/toggle", d.postToggle)
	return router
}

func (d *Device) getConfig(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.Config())
}

func (d *Device) putConfig(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key, value := ps.ByName("key"), r.URL.Query().Get("value")

	err := d.Set(key, value)
	switch {
	case err == errUnknownKey:
		http.Error(w, "unknown key", http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		d.logger.Info("Configuration changed", zap.String("key", key), zap.String("value", value))
		w.WriteHeader(http.StatusOK)
		return
	}
	d.logger.Info("Configuration change refused", zap.String("key", key), zap.Error(err))
}

func (d *Device) postToggle(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	mode := d.Toggle()
	d.logger.Info("Mode toggled", zap.String("mode", mode))
	w.WriteHeader(http.StatusOK)
}
