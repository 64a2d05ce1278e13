package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx API response
type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// acceptedResponse reports whether a device accepted a change
type acceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

type discoverResponse struct {
	Broadcast string `json:"broadcast"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDeviceError maps a control client error onto a gateway-style status
func writeDeviceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var devErr *deviceconfig.DeviceError
	if errors.As(err, &devErr) {
		switch devErr.Type {
		case deviceconfig.ErrTypeValidation:
			status = http.StatusBadRequest
		case deviceconfig.ErrTypeTimeout:
			status = http.StatusGatewayTimeout
		}
	}

	writeJSON(w, status, errorResponse{
		Error: deviceconfig.GetShortErrorMessage(err),
		Hint:  deviceconfig.GetTroubleshootingHint(err),
	})
}

func (s *Server) getDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.List()
	infos := make([]discovery.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, d.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

// postDiscover clears the registry and broadcasts a fresh DEVICEID request.
// Replies arrive asynchronously through the listener and the event stream.
func (s *Server) postDiscover(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(s.config.DiscoverRate)))
		writeError(w, http.StatusTooManyRequests, "discovery requested too often")
		return
	}

	s.registry.Clear()

	broadcast, err := s.solicit(r.Context())
	if errors.Is(err, discovery.ErrNetworkUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "network unavailable",
			Hint:  err.Error(),
		})
		return
	}
	if err != nil {
		s.logger.Error("Discovery broadcast failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, discoverResponse{Broadcast: broadcast.String()})
}

func retryAfterSeconds(rate float64) int {
	if rate >= 1 {
		return 1
	}
	return int(1/rate + 0.5)
}

// clientFor looks up the device named by the :address parameter and returns
// a control client bound to it, writing a 404 when it is not registered
func (s *Server) clientFor(w http.ResponseWriter, ps httprouter.Params) (*deviceconfig.Client, bool) {
	address := ps.ByName("address")
	device, ok := s.registry.Get(address)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("device %s not found", address))
		return nil, false
	}

	client := deviceconfig.NewClient(device).WithNameUpdater(s.registry)
	if s.config.RequestTimeout > 0 {
		client.SetTimeout(s.config.RequestTimeout)
	}
	return client, true
}

func (s *Server) getDevice(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	client, ok := s.clientFor(w, ps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, client.Device().Info())
}

func (s *Server) getDeviceConfig(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	client, ok := s.clientFor(w, ps)
	if !ok {
		return
	}

	config, err := client.GetConfiguration(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

func (s *Server) postDeviceReload(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	client, ok := s.clientFor(w, ps)
	if !ok {
		return
	}

	if err := client.ReloadConfiguration(r.Context()); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client.Device().Info())
}

// putDeviceConfigValue forwards PUT /config/{key}?value= to the device.
// A device rejection is a 200 with accepted=false.
func (s *Server) putDeviceConfigValue(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	client, ok := s.clientFor(w, ps)
	if !ok {
		return
	}

	query := r.URL.Query()
	if !query.Has("value") {
		writeError(w, http.StatusBadRequest, "missing value query parameter")
		return
	}
	key, value := ps.ByName("key"), query.Get("value")
	if err := deviceconfig.ValidateSetting(key, value); err != nil {
		writeDeviceError(w, err)
		return
	}

	accepted, err := client.SetConfigurationValue(r.Context(), key, value)
	if err != nil && !accepted {
		writeDeviceError(w, err)
		return
	}

	resp := acceptedResponse{Accepted: accepted}
	if err != nil {
		resp.Error = deviceconfig.GetShortErrorMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) postDeviceToggle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	client, ok := s.clientFor(w, ps)
	if !ok {
		return
	}

	accepted, err := client.ToggleMode(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acceptedResponse{Accepted: accepted})
}

// statusRecorder captures the response status for logging. It passes
// Hijack through so the event stream can upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

// logRequests logs every API request and counts it by status code
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		metricAPIRequests.WithLabelValues(strconv.Itoa(rec.status)).Inc()
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
