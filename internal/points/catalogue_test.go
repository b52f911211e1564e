package points

import (
	"strings"
	"testing"
)

const testUUID = "0123456789abcdef0123456789abcdef"

func TestFixedDefinitions_Valid(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range FixedDefinitions() {
		if err := def.Validate(); err != nil {
			t.Errorf("%s: Validate() error = %v", def.Address, err)
		}
		if seen[def.Address] {
			t.Errorf("duplicate address %s", def.Address)
		}
		seen[def.Address] = true
	}

	for _, addr := range []string{AddrConnection, AddrVolume, AddrBrightnessAuto, AddrScreensaverTimeStart, AddrAppsNext} {
		if !seen[addr] {
			t.Errorf("missing fixed point %s", addr)
		}
	}
}

func TestFixedDefinitions_Writable(t *testing.T) {
	writable := map[string]bool{
		AddrVolume:                    true,
		AddrBluetoothName:             true,
		AddrBluetoothActive:           true,
		AddrBrightness:                true,
		AddrBrightnessAuto:            true,
		AddrScreensaverEnabled:        true,
		AddrScreensaverTimeEnabled:    true,
		AddrScreensaverTimeStart:      true,
		AddrScreensaverTimeEnd:        true,
		AddrScreensaverWhenDarkEnable: true,
		AddrAppsNext:                  true,
		AddrAppsPrev:                  true,
	}

	for _, def := range FixedDefinitions() {
		if def.Writable != writable[def.Address] {
			t.Errorf("%s Writable = %v, want %v", def.Address, def.Writable, writable[def.Address])
		}
	}
}

func TestWidgetDefinitions(t *testing.T) {
	tests := []struct {
		pkg       string
		wantCount int
		wantLeaf  []string
	}{
		{"com.example.clock", 6, nil},
		{PackageRadio, 11, []string{"radio.play", "radio.stop", "radio.next", "radio.prev"}},
		{PackageStopwatch, 10, []string{"stopwatch.start", "stopwatch.pause", "stopwatch.reset"}},
		{PackageWeather, 8, []string{"weather.forecast"}},
		// Package match is exact.
		{"com.lametric.radio2", 6, nil},
		{"COM.LAMETRIC.RADIO", 6, nil},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			defs := WidgetDefinitions(testUUID, tt.pkg, "2.0.1")
			if len(defs) != tt.wantCount {
				t.Fatalf("got %d definitions, want %d", len(defs), tt.wantCount)
			}

			byAddr := make(map[string]Definition)
			for _, d := range defs {
				if err := d.Validate(); err != nil {
					t.Errorf("%s: Validate() error = %v", d.Address, err)
				}
				if !strings.HasPrefix(d.Address, "apps."+testUUID) {
					t.Errorf("%s outside widget channel", d.Address)
				}
				byAddr[d.Address] = d
			}

			for _, leaf := range append([]string{"activate", "index", "package", "vendor", "version"}, tt.wantLeaf...) {
				if _, ok := byAddr[WidgetAddress(testUUID, leaf)]; !ok {
					t.Errorf("missing %s", leaf)
				}
			}

			if byAddr[WidgetAddress(testUUID, "activate")].Role != RoleButton {
				t.Error("activate is not a button")
			}
			if byAddr[WidgetAddress(testUUID, "")].Name != "Widget "+tt.pkg+"(2.0.1)" {
				t.Errorf("channel name = %q", byAddr[WidgetAddress(testUUID, "")].Name)
			}
		})
	}
}

func TestIsWidgetUUID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{testUUID, true},
		{"0123456789ABCDEF0123456789abcdef", false},
		{"0123456789abcdef", false},
		{"0123456789abcdef0123456789abcdef0", false},
		{"next", false},
	}

	for _, tt := range tests {
		if got := IsWidgetUUID(tt.in); got != tt.want {
			t.Errorf("IsWidgetUUID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
