package lametric

import (
	"strings"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// FieldMapping projects one field of a device JSON object onto a point.
type FieldMapping struct {
	// Address is the target point.
	Address string

	// Field is the dot-separated path inside the device object.
	Field string

	// Convert optionally transforms the raw field value.
	Convert func(any) any
}

func field(address, path string) FieldMapping {
	return FieldMapping{Address: address, Field: path}
}

func isAutoMode(v any) any {
	s, _ := v.(string)
	return s == BrightnessModeAuto
}

// DeviceFields maps GET device onto the identity, audio, bluetooth and
// wifi points.
var DeviceFields = []FieldMapping{
	field(points.AddrName, "name"),
	field(points.AddrSerial, "serial_number"),
	field(points.AddrVersion, "os_version"),
	field(points.AddrModel, "model"),
	field(points.AddrMode, "mode"),

	field(points.AddrVolume, "audio.volume"),

	field(points.AddrBluetoothAvailable, "bluetooth.available"),
	field(points.AddrBluetoothName, "bluetooth.name"),
	field(points.AddrBluetoothActive, "bluetooth.active"),
	field(points.AddrBluetoothDiscoverable, "bluetooth.discoverable"),
	field(points.AddrBluetoothPairable, "bluetooth.pairable"),
	field(points.AddrBluetoothAddress, "bluetooth.address"),

	field(points.AddrWifiActive, "wifi.active"),
	field(points.AddrWifiAddress, "wifi.address"),
	field(points.AddrWifiAvailable, "wifi.available"),
	field(points.AddrWifiEncryption, "wifi.encryption"),
	field(points.AddrWifiSSID, "wifi.essid"),
	field(points.AddrWifiIP, "wifi.ip"),
	field(points.AddrWifiMode, "wifi.mode"),
	field(points.AddrWifiNetmask, "wifi.netmask"),
	field(points.AddrWifiStrength, "wifi.strength"),
}

// BrightnessFields maps the brightness part of a display object.
var BrightnessFields = []FieldMapping{
	field(points.AddrBrightness, "brightness"),
	{Address: points.AddrBrightnessAuto, Field: "brightness_mode", Convert: isAutoMode},
	field(points.AddrBrightnessMode, "brightness_mode"),
}

// ScreensaverFields maps the screensaver part of a display object.
var ScreensaverFields = []FieldMapping{
	field(points.AddrScreensaverEnabled, "screensaver.enabled"),
	field(points.AddrScreensaverWidget, "screensaver.widget"),
	field(points.AddrScreensaverTimeEnabled, "screensaver.modes.time_based.enabled"),
	field(points.AddrScreensaverTimeStart, "screensaver.modes.time_based.start_time"),
	field(points.AddrScreensaverTimeEnd, "screensaver.modes.time_based.end_time"),
	field(points.AddrScreensaverWhenDarkEnable, "screensaver.modes.when_dark.enabled"),
}

// DisplayFields maps GET device/display.
var DisplayFields = concatFields(
	BrightnessFields,
	[]FieldMapping{
		field(points.AddrDisplayWidth, "width"),
		field(points.AddrDisplayHeight, "height"),
		field(points.AddrDisplayType, "type"),
	},
	ScreensaverFields,
)

// AudioFields maps the response of PUT device/audio.
var AudioFields = []FieldMapping{
	field(points.AddrVolume, "volume"),
}

// BluetoothResponseFields maps the response of PUT device/bluetooth. The
// update response names the MAC address "mac", unlike GET device.
var BluetoothResponseFields = []FieldMapping{
	field(points.AddrBluetoothActive, "active"),
	field(points.AddrBluetoothAvailable, "available"),
	field(points.AddrBluetoothDiscoverable, "discoverable"),
	field(points.AddrBluetoothAddress, "mac"),
	field(points.AddrBluetoothName, "name"),
	field(points.AddrBluetoothPairable, "pairable"),
}

func concatFields(groups ...[]FieldMapping) []FieldMapping {
	var out []FieldMapping
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// ProjectedValue is one point value extracted from a device object.
type ProjectedValue struct {
	Address string
	Value   any
}

// Project extracts every mapped field present in obj, in mapping order.
// Mappings whose field is absent are returned in missing.
func Project(obj map[string]any, fields []FieldMapping) (values []ProjectedValue, missing []string) {
	for _, f := range fields {
		v, ok := lookup(obj, f.Field)
		if !ok {
			missing = append(missing, f.Field)
			continue
		}
		if f.Convert != nil {
			v = f.Convert(v)
		}
		values = append(values, ProjectedValue{Address: f.Address, Value: v})
	}
	return values, missing
}

// lookup walks a dot-separated path through nested JSON objects.
func lookup(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
