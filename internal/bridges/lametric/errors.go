package lametric

import "errors"

// Domain errors for the LaMetric bridge package.
var (
	// ErrDisabled is returned when the device host or token is not
	// configured. No request is attempted.
	ErrDisabled = errors.New("lametric: device integration disabled")

	// ErrRequestFailed is returned when the HTTP request could not be
	// completed (DNS, connection refused, timeout).
	ErrRequestFailed = errors.New("lametric: device request failed")

	// ErrUnexpectedStatus is returned when the device answers with a
	// status other than 200 or 201.
	ErrUnexpectedStatus = errors.New("lametric: unexpected device status")

	// ErrUnexpectedResponse is returned when a device response cannot be
	// decoded or lacks a required field.
	ErrUnexpectedResponse = errors.New("lametric: unexpected device response")

	// ErrUnknownScreensaverMode is returned when a write targets a
	// screensaver mode point that is neither timeBased nor whenDark.
	ErrUnknownScreensaverMode = errors.New("lametric: unknown screensaver mode")

	// ErrUnknownPackage is returned when a widget command cannot resolve
	// the widget's package from the point tree.
	ErrUnknownPackage = errors.New("lametric: widget package unknown")
)
