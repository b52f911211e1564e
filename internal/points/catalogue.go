package points

import "regexp"

// Fixed point addresses.
const (
	AddrConnection = "info.connection"

	AddrName    = "meta.name"
	AddrSerial  = "meta.serial"
	AddrVersion = "meta.version"
	AddrModel   = "meta.model"
	AddrMode    = "meta.mode"

	AddrVolume = "meta.audio.volume"

	AddrBluetoothAvailable    = "meta.bluetooth.available"
	AddrBluetoothName         = "meta.bluetooth.name"
	AddrBluetoothActive       = "meta.bluetooth.active"
	AddrBluetoothDiscoverable = "meta.bluetooth.discoverable"
	AddrBluetoothPairable     = "meta.bluetooth.pairable"
	AddrBluetoothAddress      = "meta.bluetooth.address"

	AddrWifiActive     = "meta.wifi.active"
	AddrWifiAddress    = "meta.wifi.address"
	AddrWifiAvailable  = "meta.wifi.available"
	AddrWifiEncryption = "meta.wifi.encryption"
	AddrWifiSSID       = "meta.wifi.ssid"
	AddrWifiIP         = "meta.wifi.ip"
	AddrWifiMode       = "meta.wifi.mode"
	AddrWifiNetmask    = "meta.wifi.netmask"
	AddrWifiStrength   = "meta.wifi.strength"

	AddrBrightness     = "meta.display.brightness"
	AddrBrightnessAuto = "meta.display.brightnessAuto"
	AddrBrightnessMode = "meta.display.brightnessMode"
	AddrDisplayWidth   = "meta.display.width"
	AddrDisplayHeight  = "meta.display.height"
	AddrDisplayType    = "meta.display.type"

	PrefixScreensaver             = "meta.display.screensaver"
	PrefixScreensaverModes        = "meta.display.screensaver.modes"
	AddrScreensaverEnabled        = "meta.display.screensaver.enabled"
	AddrScreensaverWidget         = "meta.display.screensaver.widget"
	AddrScreensaverTimeEnabled    = "meta.display.screensaver.modes.timeBased.enabled"
	AddrScreensaverTimeStart      = "meta.display.screensaver.modes.timeBased.startTime"
	AddrScreensaverTimeEnd        = "meta.display.screensaver.modes.timeBased.endTime"
	AddrScreensaverWhenDarkEnable = "meta.display.screensaver.modes.whenDark.enabled"

	PrefixApps   = "apps"
	AddrAppsNext = "apps.next"
	AddrAppsPrev = "apps.prev"
)

// Widget packages with specialised action points.
const (
	PackageRadio     = "com.lametric.radio"
	PackageStopwatch = "com.lametric.stopwatch"
	PackageWeather   = "com.lametric.weather"
)

// widgetUUID matches the 32-character lowercase alphanumeric widget id.
var widgetUUID = regexp.MustCompile(`^[a-z0-9]{32}$`)

// IsWidgetUUID reports whether s is a well-formed widget id.
func IsWidgetUUID(s string) bool {
	return widgetUUID.MatchString(s)
}

// WidgetAddress returns "apps.{uuid}.{leaf}" or "apps.{uuid}" when leaf is empty.
func WidgetAddress(uuid, leaf string) string {
	if leaf == "" {
		return PrefixApps + "." + uuid
	}
	return PrefixApps + "." + uuid + "." + leaf
}

func ro(addr, name string, t Type, role string) Definition {
	return Definition{Address: addr, Name: name, Type: t, Role: role, Readable: true}
}

func rw(addr, name string, t Type, role string) Definition {
	return Definition{Address: addr, Name: name, Type: t, Role: role, Readable: true, Writable: true}
}

func button(addr, name string) Definition {
	return Definition{Address: addr, Name: name, Type: TypeBoolean, Role: RoleButton, Writable: true}
}

// FixedDefinitions returns the points that exist regardless of which apps
// are installed.
func FixedDefinitions() []Definition {
	return []Definition{
		ro(AddrConnection, "Device connected", TypeBoolean, RoleIndicator),

		ro(AddrName, "Name", TypeString, RoleText),
		ro(AddrSerial, "Serial number", TypeString, RoleText),
		ro(AddrVersion, "OS version", TypeString, RoleText),
		ro(AddrModel, "Model", TypeString, RoleText),
		ro(AddrMode, "Mode", TypeString, RoleText),

		rw(AddrVolume, "Volume", TypeNumber, RoleLevel),

		ro(AddrBluetoothAvailable, "Bluetooth available", TypeBoolean, RoleIndicator),
		rw(AddrBluetoothName, "Bluetooth name", TypeString, RoleText),
		rw(AddrBluetoothActive, "Bluetooth active", TypeBoolean, RoleSwitch),
		ro(AddrBluetoothDiscoverable, "Bluetooth discoverable", TypeBoolean, RoleIndicator),
		ro(AddrBluetoothPairable, "Bluetooth pairable", TypeBoolean, RoleIndicator),
		ro(AddrBluetoothAddress, "Bluetooth MAC address", TypeString, RoleText),

		ro(AddrWifiActive, "Wifi active", TypeBoolean, RoleIndicator),
		ro(AddrWifiAddress, "Wifi MAC address", TypeString, RoleText),
		ro(AddrWifiAvailable, "Wifi available", TypeBoolean, RoleIndicator),
		ro(AddrWifiEncryption, "Wifi encryption", TypeString, RoleText),
		ro(AddrWifiSSID, "Wifi SSID", TypeString, RoleText),
		ro(AddrWifiIP, "Wifi IP", TypeString, RoleText),
		ro(AddrWifiMode, "Wifi mode", TypeString, RoleText),
		ro(AddrWifiNetmask, "Wifi netmask", TypeString, RoleText),
		ro(AddrWifiStrength, "Wifi strength", TypeNumber, RoleValue),

		rw(AddrBrightness, "Brightness", TypeNumber, RoleLevel),
		rw(AddrBrightnessAuto, "Automatic brightness", TypeBoolean, RoleSwitch),
		ro(AddrBrightnessMode, "Brightness mode", TypeString, RoleText),
		ro(AddrDisplayWidth, "Display width", TypeNumber, RoleValue),
		ro(AddrDisplayHeight, "Display height", TypeNumber, RoleValue),
		ro(AddrDisplayType, "Display type", TypeString, RoleText),

		rw(AddrScreensaverEnabled, "Screensaver enabled", TypeBoolean, RoleSwitch),
		ro(AddrScreensaverWidget, "Screensaver widget", TypeString, RoleText),
		rw(AddrScreensaverTimeEnabled, "Time based screensaver", TypeBoolean, RoleSwitch),
		rw(AddrScreensaverTimeStart, "Screensaver start time", TypeString, RoleText),
		rw(AddrScreensaverTimeEnd, "Screensaver end time", TypeString, RoleText),
		rw(AddrScreensaverWhenDarkEnable, "Screensaver when dark", TypeBoolean, RoleSwitch),

		button(AddrAppsNext, "Next app"),
		button(AddrAppsPrev, "Previous app"),
	}
}

// WidgetDefinitions returns the points for one installed widget.
//
// Every widget gets a channel plus activate/index/package/vendor/version.
// Radio, stopwatch and weather widgets get extra action buttons, but only
// when pkg matches the package id exactly.
func WidgetDefinitions(uuid, pkg, version string) []Definition {
	defs := []Definition{
		{Address: WidgetAddress(uuid, ""), Name: "Widget " + pkg + "(" + version + ")", Type: TypeString, Role: RoleChannel},
		button(WidgetAddress(uuid, "activate"), "Activate"),
		ro(WidgetAddress(uuid, "index"), "Index", TypeNumber, RoleValue),
		ro(WidgetAddress(uuid, "package"), "Package", TypeString, RoleValue),
		ro(WidgetAddress(uuid, "vendor"), "Vendor", TypeString, RoleValue),
		ro(WidgetAddress(uuid, "version"), "Version", TypeString, RoleValue),
	}

	switch pkg {
	case PackageRadio:
		defs = append(defs,
			Definition{Address: WidgetAddress(uuid, "radio"), Name: pkg, Type: TypeString, Role: RoleChannel},
			button(WidgetAddress(uuid, "radio.play"), "Play radio"),
			button(WidgetAddress(uuid, "radio.stop"), "Stop radio"),
			button(WidgetAddress(uuid, "radio.next"), "Next radio"),
			button(WidgetAddress(uuid, "radio.prev"), "Previous radio"),
		)
	case PackageStopwatch:
		defs = append(defs,
			Definition{Address: WidgetAddress(uuid, "stopwatch"), Name: pkg, Type: TypeString, Role: RoleChannel},
			button(WidgetAddress(uuid, "stopwatch.start"), "Start stopwatch"),
			button(WidgetAddress(uuid, "stopwatch.pause"), "Pause stopwatch"),
			button(WidgetAddress(uuid, "stopwatch.reset"), "Reset stopwatch"),
		)
	case PackageWeather:
		defs = append(defs,
			Definition{Address: WidgetAddress(uuid, "weather"), Name: pkg, Type: TypeString, Role: RoleChannel},
			button(WidgetAddress(uuid, "weather.forecast"), "Weather forecast"),
		)
	}

	return defs
}
