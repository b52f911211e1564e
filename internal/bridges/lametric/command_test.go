package lametric

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

const testUUID = "0123456789abcdef0123456789abcdef"

func TestClassify(t *testing.T) {
	tests := []struct {
		address    string
		wantKind   CommandKind
		wantMode   ScreensaverMode
		wantUUID   string
		wantAction string
	}{
		{points.AddrBrightness, CommandBrightness, "", "", ""},
		{points.AddrBrightnessAuto, CommandBrightnessAuto, "", "", ""},
		{points.AddrVolume, CommandVolume, "", "", ""},
		{points.AddrBluetoothActive, CommandBluetoothActive, "", "", ""},
		{points.AddrBluetoothName, CommandBluetoothName, "", "", ""},
		{points.AddrAppsNext, CommandNextApp, "", "", ""},
		{points.AddrAppsPrev, CommandPrevApp, "", "", ""},
		{points.AddrScreensaverEnabled, CommandScreensaverEnabled, "", "", ""},
		{points.AddrScreensaverTimeStart, CommandScreensaverMode, ModeTimeBased, "", ""},
		{points.AddrScreensaverTimeEnd, CommandScreensaverMode, ModeTimeBased, "", ""},
		{points.AddrScreensaverTimeEnabled, CommandScreensaverMode, ModeTimeBased, "", ""},
		{points.AddrScreensaverWhenDarkEnable, CommandScreensaverMode, ModeWhenDark, "", ""},
		{"apps." + testUUID + ".activate", CommandWidgetActivate, "", testUUID, "activate"},
		{"apps." + testUUID + ".radio.play", CommandWidgetAction, "", testUUID, "radio.play"},
		{"apps." + testUUID + ".weather.forecast", CommandWidgetAction, "", testUUID, "weather.forecast"},

		// No device call.
		{points.AddrWifiSSID, CommandNone, "", "", ""},
		{points.AddrBrightnessMode, CommandNone, "", "", ""},
		{points.AddrConnection, CommandNone, "", "", ""},
		{"apps.ABCDEF0123456789abcdef0123456789.activate", CommandNone, "", "", ""},
		{"apps.short.activate", CommandNone, "", "", ""},
		{"apps." + testUUID, CommandNone, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			cmd, err := Classify(tt.address, true)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if cmd.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", cmd.Kind, tt.wantKind)
			}
			if cmd.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", cmd.Mode, tt.wantMode)
			}
			if cmd.WidgetUUID != tt.wantUUID {
				t.Errorf("WidgetUUID = %q, want %q", cmd.WidgetUUID, tt.wantUUID)
			}
			if cmd.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", cmd.Action, tt.wantAction)
			}
			if cmd.Value != true {
				t.Errorf("Value = %v, want true", cmd.Value)
			}
		})
	}
}

func TestClassify_UnknownScreensaverMode(t *testing.T) {
	addresses := []string{
		points.PrefixScreensaverModes + ".sunrise.enabled",
		points.PrefixScreensaverModes + ".time_based.enabled",
	}
	for _, addr := range addresses {
		_, err := Classify(addr, true)
		if !errors.Is(err, ErrUnknownScreensaverMode) {
			t.Errorf("Classify(%q) error = %v, want ErrUnknownScreensaverMode", addr, err)
		}
	}
}

func TestCommandKind_String(t *testing.T) {
	if got := CommandBrightness.String(); got != "brightness" {
		t.Errorf("String() = %q, want brightness", got)
	}
	if got := CommandKind(99).String(); got != "CommandKind(99)" {
		t.Errorf("String() = %q, want CommandKind(99)", got)
	}
}
