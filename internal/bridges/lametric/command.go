package lametric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// CommandKind identifies which device call a point write translates to.
type CommandKind int

// Command kinds.
const (
	CommandNone CommandKind = iota
	CommandBrightness
	CommandBrightnessAuto
	CommandVolume
	CommandBluetoothActive
	CommandBluetoothName
	CommandNextApp
	CommandPrevApp
	CommandScreensaverEnabled
	CommandScreensaverMode
	CommandWidgetActivate
	CommandWidgetAction
)

var commandKindNames = map[CommandKind]string{
	CommandNone:               "none",
	CommandBrightness:         "brightness",
	CommandBrightnessAuto:     "brightness_auto",
	CommandVolume:             "volume",
	CommandBluetoothActive:    "bluetooth_active",
	CommandBluetoothName:      "bluetooth_name",
	CommandNextApp:            "next_app",
	CommandPrevApp:            "prev_app",
	CommandScreensaverEnabled: "screensaver_enabled",
	CommandScreensaverMode:    "screensaver_mode",
	CommandWidgetActivate:     "widget_activate",
	CommandWidgetAction:       "widget_action",
}

// String returns the kind name used in logs.
func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// ScreensaverMode is the device's name for a screensaver activation mode.
type ScreensaverMode string

// Screensaver modes.
const (
	ModeTimeBased ScreensaverMode = "time_based"
	ModeWhenDark  ScreensaverMode = "when_dark"
)

// Point segment names under meta.display.screensaver.modes.
const (
	segmentTimeBased = "timeBased"
	segmentWhenDark  = "whenDark"
)

// actionActivate is the widget leaf that activates rather than triggers an action.
const actionActivate = "activate"

// widgetCommand matches apps.{uuid}.{action}; action may contain dots
// ("radio.play").
var widgetCommand = regexp.MustCompile(`^apps\.([a-z0-9]{32})\.(.+)$`)

// Command is a classified point write.
type Command struct {
	Kind    CommandKind
	Address string
	Value   any

	// Mode is set for CommandScreensaverMode.
	Mode ScreensaverMode

	// WidgetUUID and Action are set for widget commands.
	WidgetUUID string
	Action     string
}

// Classify maps a written point address to a command.
//
// Addresses that do not correspond to a device call yield CommandNone.
// A write below the screensaver modes group that names neither timeBased
// nor whenDark yields ErrUnknownScreensaverMode.
func Classify(address string, value any) (Command, error) {
	cmd := Command{Kind: CommandNone, Address: address, Value: value}

	switch address {
	case points.AddrBrightness:
		cmd.Kind = CommandBrightness
	case points.AddrBrightnessAuto:
		cmd.Kind = CommandBrightnessAuto
	case points.AddrVolume:
		cmd.Kind = CommandVolume
	case points.AddrBluetoothActive:
		cmd.Kind = CommandBluetoothActive
	case points.AddrBluetoothName:
		cmd.Kind = CommandBluetoothName
	case points.AddrAppsNext:
		cmd.Kind = CommandNextApp
	case points.AddrAppsPrev:
		cmd.Kind = CommandPrevApp
	case points.AddrScreensaverEnabled:
		cmd.Kind = CommandScreensaverEnabled
	default:
		return classifyNested(cmd)
	}
	return cmd, nil
}

func classifyNested(cmd Command) (Command, error) {
	if rest, ok := strings.CutPrefix(cmd.Address, points.PrefixScreensaverModes+"."); ok {
		segment, _, _ := strings.Cut(rest, ".")
		switch segment {
		case segmentTimeBased:
			cmd.Mode = ModeTimeBased
		case segmentWhenDark:
			cmd.Mode = ModeWhenDark
		default:
			return cmd, fmt.Errorf("%w: %s", ErrUnknownScreensaverMode, cmd.Address)
		}
		cmd.Kind = CommandScreensaverMode
		return cmd, nil
	}

	if m := widgetCommand.FindStringSubmatch(cmd.Address); m != nil {
		cmd.WidgetUUID = m[1]
		cmd.Action = m[2]
		if cmd.Action == actionActivate {
			cmd.Kind = CommandWidgetActivate
		} else {
			cmd.Kind = CommandWidgetAction
		}
	}
	return cmd, nil
}
