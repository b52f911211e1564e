package lametric

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// Dispatch forwards one user write to the device and, on success,
// re-syncs the affected points from the response with ack=true.
//
// Writes that map to no device call are ignored. With the integration
// disabled no request is made and nil is returned.
func (b *Bridge) Dispatch(ctx context.Context, address string, value any) error {
	cmd, err := Classify(address, value)
	if err != nil {
		return err
	}
	if cmd.Kind == CommandNone {
		b.logDebug("write has no device command", "address", address)
		return nil
	}

	req, err := BuildRequest(cmd, b.requestContext(cmd))
	if err != nil {
		return err
	}

	b.logDebug("sending command",
		"address", address,
		"command", cmd.Kind.String(),
		"method", req.Method,
		"endpoint", req.Endpoint)

	resp, err := b.client.Call(ctx, req.Endpoint, req.Method, req.Payload)
	if err != nil {
		if isDisabled(err) {
			return nil
		}
		return err
	}

	if len(req.Resync) == 0 {
		return nil
	}
	return b.resync(ctx, resp, req.Resync)
}

// requestContext reads the other points a command depends on.
func (b *Bridge) requestContext(cmd Command) RequestContext {
	var rc RequestContext
	switch cmd.Kind {
	case CommandScreensaverMode:
		rc.Screensaver = SnapshotScreensaver(b.registry.QueryAll(points.PrefixScreensaver))
	case CommandWidgetActivate, CommandWidgetAction:
		if pkg, ok := b.registry.Value(points.WidgetAddress(cmd.WidgetUUID, "package")).(string); ok {
			rc.WidgetPackage = pkg
		}
	}
	return rc
}

// resync applies success.data of a command response.
func (b *Bridge) resync(ctx context.Context, resp json.RawMessage, fields []FieldMapping) error {
	var envelope struct {
		Success *struct {
			Data map[string]any `json:"data"`
		} `json:"success"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	if envelope.Success == nil || envelope.Success.Data == nil {
		return fmt.Errorf("%w: missing success.data", ErrUnexpectedResponse)
	}

	b.apply(ctx, "command response", envelope.Success.Data, fields)
	return nil
}

// apply writes every mapped field present in obj with ack=true.
// Absent fields are skipped and logged.
func (b *Bridge) apply(ctx context.Context, source string, obj map[string]any, fields []FieldMapping) int {
	values, missing := Project(obj, fields)
	if len(missing) > 0 {
		b.logWarn("device response missing fields", "source", source, "fields", missing)
	}

	written := 0
	for _, v := range values {
		if err := b.registry.Write(ctx, v.Address, v.Value, true); err != nil {
			b.logError("failed to update point", fmt.Errorf("%s: %w", v.Address, err))
			continue
		}
		written++
	}
	return written
}
