package settings

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Names under which records are kept in a Store.
const (
	ConfigName   = "config.ini"
	FailsafeName = "failsafe.ini"
)

// Built-in defaults.
const (
	DefaultRevision       = 1
	DefaultSleepTimeout   = 600
	DefaultBaudRate       = 9600
	DefaultPort           = 23
	DefaultSSID           = "GUEST"
	DefaultWifiPassword   = "AAAAAAAAAA"
	DefaultHostname       = "G850V.local"
	DefaultUpdatePassword = "myOTAPW"
)

const (
	// MinSleepTimeout is the floor applied when a record is updated from
	// text at runtime.
	MinSleepTimeout = 30
	// MinStoredSleepTimeout is the floor applied when a record is read from
	// durable storage.
	MinStoredSleepTimeout = 60
)

// Field capacities in bytes. Longer values are truncated at a rune
// boundary.
const (
	maxSSID           = 32
	maxWifiPassword   = 63
	maxHostname       = 254
	maxUpdatePassword = 63
)

// Record is the device configuration. Field order is the serialization
// order.
type Record struct {
	Revision       int    `json:"rev"`
	SleepTimeout   int    `json:"sleep"`
	BaudRate       int    `json:"baud"`
	Port           int    `json:"port"`
	SSID           string `json:"ssid"`
	WifiPassword   string `json:"wifipw"`
	Hostname       string `json:"host"`
	UpdatePassword string `json:"otapw"`
}

// Defaults returns the built-in configuration.
func Defaults() Record {
	return Record{
		Revision:       DefaultRevision,
		SleepTimeout:   DefaultSleepTimeout,
		BaudRate:       DefaultBaudRate,
		Port:           DefaultPort,
		SSID:           DefaultSSID,
		WifiPassword:   DefaultWifiPassword,
		Hostname:       DefaultHostname,
		UpdatePassword: DefaultUpdatePassword,
	}
}

// Encode serializes r as compact JSON.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// ReadFromText updates r from a JSON text. Fields that are missing or of
// the wrong type keep their current value. If text is not a JSON object r
// is left untouched and ErrMalformed is returned.
func ReadFromText(r *Record, text []byte) error {
	if err := decodeFields(text, r); err != nil {
		return err
	}
	r.SleepTimeout = max(r.SleepTimeout, MinSleepTimeout)
	return nil
}

// decode builds a record from stored JSON. Missing or mistyped fields take
// the built-in defaults.
func decode(data []byte) (Record, error) {
	r := Defaults()
	if err := decodeFields(data, &r); err != nil {
		return Record{}, err
	}
	r.SleepTimeout = max(r.SleepTimeout, MinStoredSleepTimeout)
	return r, nil
}

// decodeFields overwrites the fields of r present in data, one at a time,
// so that one bad value does not discard the rest.
func decodeFields(data []byte, r *Record) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	intField(doc, "rev", &r.Revision)
	intField(doc, "sleep", &r.SleepTimeout)
	intField(doc, "baud", &r.BaudRate)
	intField(doc, "port", &r.Port)
	stringField(doc, "ssid", &r.SSID, maxSSID)
	stringField(doc, "wifipw", &r.WifiPassword, maxWifiPassword)
	stringField(doc, "host", &r.Hostname, maxHostname)
	stringField(doc, "otapw", &r.UpdatePassword, maxUpdatePassword)
	return nil
}

func intField(doc map[string]json.RawMessage, tag string, dst *int) {
	raw, ok := doc[tag]
	if !ok {
		return
	}
	var v int
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func stringField(doc map[string]json.RawMessage, tag string, dst *string, limit int) {
	raw, ok := doc[tag]
	if !ok {
		return
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	if len(v) > limit {
		n := limit
		for n > 0 && !utf8.RuneStart(v[n]) {
			n--
		}
		v = v[:n]
	}
	*dst = v
}
