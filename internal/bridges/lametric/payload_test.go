package lametric

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

// fieldAddresses lists mapping targets; FieldMapping holds funcs and
// cannot be compared directly.
func fieldAddresses(fields []FieldMapping) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Address
	}
	return out
}

func build(t *testing.T, address string, value any, rc RequestContext) DeviceRequest {
	t.Helper()
	cmd, err := Classify(address, value)
	require.NoError(t, err)
	req, err := BuildRequest(cmd, rc)
	require.NoError(t, err)
	return req
}

func TestBuildRequest_Brightness(t *testing.T) {
	req := build(t, points.AddrBrightness, 40.0, RequestContext{})

	assert.Equal(t, EndpointDisplay, req.Endpoint)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, `{"brightness":40,"brightness_mode":"manual"}`, mustJSON(t, req.Payload))
	assert.Equal(t, fieldAddresses(BrightnessFields), fieldAddresses(req.Resync))
}

func TestBuildRequest_BrightnessZeroKept(t *testing.T) {
	req := build(t, points.AddrBrightness, 0.0, RequestContext{})
	assert.Equal(t, `{"brightness":0,"brightness_mode":"manual"}`, mustJSON(t, req.Payload))
}

func TestBuildRequest_BrightnessAuto(t *testing.T) {
	on := build(t, points.AddrBrightnessAuto, true, RequestContext{})
	assert.Equal(t, `{"brightness_mode":"auto"}`, mustJSON(t, on.Payload))

	off := build(t, points.AddrBrightnessAuto, false, RequestContext{})
	assert.Equal(t, `{"brightness_mode":"manual"}`, mustJSON(t, off.Payload))
	assert.Equal(t, fieldAddresses(BrightnessFields), fieldAddresses(off.Resync))
}

func TestBuildRequest_VolumeAndBluetooth(t *testing.T) {
	vol := build(t, points.AddrVolume, 25.0, RequestContext{})
	assert.Equal(t, EndpointAudio, vol.Endpoint)
	assert.Equal(t, `{"volume":25}`, mustJSON(t, vol.Payload))
	assert.Equal(t, AudioFields, vol.Resync)

	active := build(t, points.AddrBluetoothActive, false, RequestContext{})
	assert.Equal(t, EndpointBluetooth, active.Endpoint)
	assert.Equal(t, `{"active":false}`, mustJSON(t, active.Payload))
	assert.Len(t, active.Resync, 6)

	name := build(t, points.AddrBluetoothName, "Kitchen", RequestContext{})
	assert.Equal(t, `{"name":"Kitchen"}`, mustJSON(t, name.Payload))
	assert.Equal(t, BluetoothResponseFields, name.Resync)
}

func TestBuildRequest_AppNavigation(t *testing.T) {
	next := build(t, points.AddrAppsNext, true, RequestContext{})
	assert.Equal(t, DeviceRequest{Endpoint: EndpointAppsNext, Method: http.MethodPut}, next)

	prev := build(t, points.AddrAppsPrev, true, RequestContext{})
	assert.Equal(t, DeviceRequest{Endpoint: EndpointAppsPrev, Method: http.MethodPut}, prev)
}

func TestBuildRequest_ScreensaverEnabled(t *testing.T) {
	req := build(t, points.AddrScreensaverEnabled, true, RequestContext{})
	assert.Equal(t, EndpointDisplay, req.Endpoint)
	assert.Equal(t, `{"screensaver":{"enabled":true}}`, mustJSON(t, req.Payload))
	assert.Equal(t, ScreensaverFields, req.Resync)
}

func TestBuildRequest_ScreensaverTimeBased(t *testing.T) {
	snapshot := ScreensaverSnapshot{
		Enabled:          true,
		TimeBasedEnabled: true,
		TimeBasedStart:   "22:00",
		TimeBasedEnd:     "07:00",
		WhenDarkEnabled:  false,
	}

	req := build(t, points.AddrScreensaverTimeStart, "22:00", RequestContext{Screensaver: snapshot})

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustJSON(t, req.Payload)), &body))

	ss := body["screensaver"]
	assert.Equal(t, true, ss["enabled"])
	assert.Equal(t, "time_based", ss["mode"])
	assert.Equal(t, map[string]any{
		"enabled":    true,
		"start_time": "22:00",
		"end_time":   "07:00",
	}, ss["mode_params"])
}

func TestBuildRequest_ScreensaverWhenDark(t *testing.T) {
	snapshot := ScreensaverSnapshot{
		Enabled:          false,
		TimeBasedEnabled: true,
		TimeBasedStart:   "22:00",
		TimeBasedEnd:     "07:00",
		WhenDarkEnabled:  true,
	}

	req := build(t, points.AddrScreensaverWhenDarkEnable, true, RequestContext{Screensaver: snapshot})
	assert.Equal(t,
		`{"screensaver":{"enabled":false,"mode":"when_dark","mode_params":{"enabled":true}}}`,
		mustJSON(t, req.Payload))
}

func TestBuildScreensaverModeUpdate_UnknownMode(t *testing.T) {
	_, err := BuildScreensaverModeUpdate(ScreensaverSnapshot{}, ScreensaverMode("sunrise"))
	assert.ErrorIs(t, err, ErrUnknownScreensaverMode)
}

func TestSnapshotScreensaver(t *testing.T) {
	subtree := map[string]points.Point{
		points.AddrScreensaverEnabled:     {Value: true},
		points.AddrScreensaverTimeEnabled: {Value: true},
		points.AddrScreensaverTimeEnd:     {Value: "07:00"},
	}

	s := SnapshotScreensaver(subtree)
	assert.Equal(t, true, s.Enabled)
	assert.Equal(t, true, s.TimeBasedEnabled)
	assert.Nil(t, s.TimeBasedStart)
	assert.Equal(t, "07:00", s.TimeBasedEnd)
	assert.Nil(t, s.WhenDarkEnabled)
}

func TestBuildRequest_Widget(t *testing.T) {
	rc := RequestContext{WidgetPackage: points.PackageRadio}

	activate := build(t, "apps."+testUUID+".activate", true, rc)
	assert.Equal(t, "device/apps/com.lametric.radio/widgets/"+testUUID+"/activate", activate.Endpoint)
	assert.Equal(t, http.MethodPut, activate.Method)
	assert.Nil(t, activate.Payload)
	assert.Empty(t, activate.Resync)

	play := build(t, "apps."+testUUID+".radio.play", true, rc)
	assert.Equal(t, "device/apps/com.lametric.radio/widgets/"+testUUID+"/actions", play.Endpoint)
	assert.Equal(t, http.MethodPost, play.Method)
	assert.Equal(t, `{"id":"radio.play"}`, mustJSON(t, play.Payload))
}

func TestBuildRequest_WidgetWithoutPackage(t *testing.T) {
	cmd, err := Classify("apps."+testUUID+".activate", true)
	require.NoError(t, err)

	_, err = BuildRequest(cmd, RequestContext{})
	assert.ErrorIs(t, err, ErrUnknownPackage)
}

func TestBuildRequest_None(t *testing.T) {
	cmd, err := Classify(points.AddrWifiSSID, "x")
	require.NoError(t, err)

	_, err = BuildRequest(cmd, RequestContext{})
	assert.Error(t, err)
}

func TestTruthy(t *testing.T) {
	assert.True(t, truthy(true))
	assert.True(t, truthy(1.0))
	assert.True(t, truthy("on"))
	assert.False(t, truthy(false))
	assert.False(t, truthy(0.0))
	assert.False(t, truthy("off"))
	assert.False(t, truthy(nil))
}
