package lametric

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// Device endpoints, relative to /api/v2/.
const (
	EndpointDevice        = "device"
	EndpointDisplay       = "device/display"
	EndpointAudio         = "device/audio"
	EndpointBluetooth     = "device/bluetooth"
	EndpointApps          = "device/apps"
	EndpointAppsNext      = "device/apps/next"
	EndpointAppsPrev      = "device/apps/prev"
	EndpointNotifications = "device/notifications"
)

// Brightness modes as reported and accepted by the device.
const (
	BrightnessModeAuto   = "auto"
	BrightnessModeManual = "manual"
)

// DisplayUpdate is the body of PUT device/display.
type DisplayUpdate struct {
	Brightness     any                `json:"brightness,omitempty"`
	BrightnessMode string             `json:"brightness_mode,omitempty"`
	Screensaver    *ScreensaverUpdate `json:"screensaver,omitempty"`
}

// ScreensaverUpdate is the screensaver block of a display update.
type ScreensaverUpdate struct {
	Enabled    any             `json:"enabled"`
	Mode       ScreensaverMode `json:"mode,omitempty"`
	ModeParams any             `json:"mode_params,omitempty"`
}

// TimeBasedParams are the mode_params of the time_based screensaver mode.
type TimeBasedParams struct {
	Enabled   any `json:"enabled"`
	StartTime any `json:"start_time"`
	EndTime   any `json:"end_time"`
}

// WhenDarkParams are the mode_params of the when_dark screensaver mode.
type WhenDarkParams struct {
	Enabled any `json:"enabled"`
}

// AudioUpdate is the body of PUT device/audio.
type AudioUpdate struct {
	Volume any `json:"volume"`
}

// BluetoothUpdate is the body of PUT device/bluetooth.
type BluetoothUpdate struct {
	Active any `json:"active,omitempty"`
	Name   any `json:"name,omitempty"`
}

// WidgetAction is the body of POST device/apps/{package}/widgets/{uuid}/actions.
type WidgetAction struct {
	ID string `json:"id"`
}

// ScreensaverSnapshot holds the current screensaver point values needed to
// build a mode update. Values are nil when a point has never been written.
type ScreensaverSnapshot struct {
	Enabled          any
	TimeBasedEnabled any
	TimeBasedStart   any
	TimeBasedEnd     any
	WhenDarkEnabled  any
}

// SnapshotScreensaver extracts the screensaver values from a subtree query.
func SnapshotScreensaver(subtree map[string]points.Point) ScreensaverSnapshot {
	val := func(addr string) any {
		if p, ok := subtree[addr]; ok {
			return p.Value
		}
		return nil
	}
	return ScreensaverSnapshot{
		Enabled:          val(points.AddrScreensaverEnabled),
		TimeBasedEnabled: val(points.AddrScreensaverTimeEnabled),
		TimeBasedStart:   val(points.AddrScreensaverTimeStart),
		TimeBasedEnd:     val(points.AddrScreensaverTimeEnd),
		WhenDarkEnabled:  val(points.AddrScreensaverWhenDarkEnable),
	}
}

// BuildScreensaverModeUpdate builds the display update that switches the
// screensaver to mode using only that mode's parameters from s.
func BuildScreensaverModeUpdate(s ScreensaverSnapshot, mode ScreensaverMode) (DisplayUpdate, error) {
	update := &ScreensaverUpdate{Enabled: s.Enabled, Mode: mode}

	switch mode {
	case ModeTimeBased:
		update.ModeParams = TimeBasedParams{
			Enabled:   s.TimeBasedEnabled,
			StartTime: s.TimeBasedStart,
			EndTime:   s.TimeBasedEnd,
		}
	case ModeWhenDark:
		update.ModeParams = WhenDarkParams{Enabled: s.WhenDarkEnabled}
	default:
		return DisplayUpdate{}, fmt.Errorf("%w: %q", ErrUnknownScreensaverMode, mode)
	}

	return DisplayUpdate{Screensaver: update}, nil
}

// RequestContext carries the point values a command needs beyond its own.
type RequestContext struct {
	// Screensaver is required for CommandScreensaverMode.
	Screensaver ScreensaverSnapshot

	// WidgetPackage is required for widget commands.
	WidgetPackage string
}

// DeviceRequest is one device call derived from a command.
type DeviceRequest struct {
	Endpoint string
	Method   string
	Payload  any

	// Resync lists the points refreshed from the response's success.data.
	Resync []FieldMapping
}

// BuildRequest translates a classified command into a device call.
// It performs no I/O; values read from other points come from rc.
func BuildRequest(cmd Command, rc RequestContext) (DeviceRequest, error) {
	switch cmd.Kind {
	case CommandBrightness:
		return DeviceRequest{
			Endpoint: EndpointDisplay,
			Method:   http.MethodPut,
			Payload:  DisplayUpdate{Brightness: cmd.Value, BrightnessMode: BrightnessModeManual},
			Resync:   BrightnessFields,
		}, nil

	case CommandBrightnessAuto:
		mode := BrightnessModeManual
		if truthy(cmd.Value) {
			mode = BrightnessModeAuto
		}
		return DeviceRequest{
			Endpoint: EndpointDisplay,
			Method:   http.MethodPut,
			Payload:  DisplayUpdate{BrightnessMode: mode},
			Resync:   BrightnessFields,
		}, nil

	case CommandVolume:
		return DeviceRequest{
			Endpoint: EndpointAudio,
			Method:   http.MethodPut,
			Payload:  AudioUpdate{Volume: cmd.Value},
			Resync:   AudioFields,
		}, nil

	case CommandBluetoothActive:
		return DeviceRequest{
			Endpoint: EndpointBluetooth,
			Method:   http.MethodPut,
			Payload:  BluetoothUpdate{Active: truthy(cmd.Value)},
			Resync:   BluetoothResponseFields,
		}, nil

	case CommandBluetoothName:
		return DeviceRequest{
			Endpoint: EndpointBluetooth,
			Method:   http.MethodPut,
			Payload:  BluetoothUpdate{Name: cmd.Value},
			Resync:   BluetoothResponseFields,
		}, nil

	case CommandNextApp:
		return DeviceRequest{Endpoint: EndpointAppsNext, Method: http.MethodPut}, nil

	case CommandPrevApp:
		return DeviceRequest{Endpoint: EndpointAppsPrev, Method: http.MethodPut}, nil

	case CommandScreensaverEnabled:
		return DeviceRequest{
			Endpoint: EndpointDisplay,
			Method:   http.MethodPut,
			Payload:  DisplayUpdate{Screensaver: &ScreensaverUpdate{Enabled: truthy(cmd.Value)}},
			Resync:   ScreensaverFields,
		}, nil

	case CommandScreensaverMode:
		update, err := BuildScreensaverModeUpdate(rc.Screensaver, cmd.Mode)
		if err != nil {
			return DeviceRequest{}, err
		}
		return DeviceRequest{
			Endpoint: EndpointDisplay,
			Method:   http.MethodPut,
			Payload:  update,
			Resync:   ScreensaverFields,
		}, nil

	case CommandWidgetActivate, CommandWidgetAction:
		if rc.WidgetPackage == "" {
			return DeviceRequest{}, fmt.Errorf("%w: widget %s", ErrUnknownPackage, cmd.WidgetUUID)
		}
		base := widgetEndpoint(rc.WidgetPackage, cmd.WidgetUUID)
		if cmd.Kind == CommandWidgetActivate {
			return DeviceRequest{Endpoint: base + "/activate", Method: http.MethodPut}, nil
		}
		return DeviceRequest{
			Endpoint: base + "/actions",
			Method:   http.MethodPost,
			Payload:  WidgetAction{ID: cmd.Action},
		}, nil
	}

	return DeviceRequest{}, fmt.Errorf("no device call for %s (%s)", cmd.Address, cmd.Kind)
}

func widgetEndpoint(pkg, uuid string) string {
	return EndpointApps + "/" + pkg + "/widgets/" + uuid
}

// truthy mirrors how the host tree treats non-boolean switch values.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "on"
	default:
		return false
	}
}
