package deviceconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Well-known configuration keys reported by LED controllers
const (
	KeyDeviceName = "device_name"
	KeyMode       = "mode"
	KeyBrightness = "brightness"
	KeyColor      = "color"
)

// Configuration is the key/value object returned by GET /config.
//
// Controllers differ in which keys they report; only device_name is
// required. Values keep their JSON types (string, json.Number, bool, nested
// objects and arrays).
type Configuration map[string]any

// ParseConfiguration decodes a GET /config response body.
// The body must be a JSON object.
func ParseConfiguration(data []byte) (Configuration, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var config Configuration
	if err := dec.Decode(&config); err != nil {
		return nil, NewParseError("failed to parse configuration JSON", err)
	}
	if config == nil {
		return nil, NewParseError("configuration is not a JSON object", nil)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, NewParseError("unexpected data after configuration object", err)
	}
	return config, nil
}

// DeviceName returns the device_name value. ok is false when the key is
// missing or not a string.
func (c Configuration) DeviceName() (name string, ok bool) {
	name, ok = c[KeyDeviceName].(string)
	return name, ok
}

// Keys returns the configuration keys in sorted order
func (c Configuration) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns a display string for key, or "" if it is absent
func (c Configuration) Value(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	return formatValue(v)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
