package lametric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// appPackage is one entry of GET device/apps, keyed by package id.
type appPackage struct {
	Package string               `json:"package"`
	Vendor  string               `json:"vendor"`
	Version string               `json:"version"`
	Widgets map[string]appWidget `json:"widgets"`
}

type appWidget struct {
	Index any `json:"index"`
}

// RefreshState fetches the device and display objects and projects them
// onto the fixed points. The two fetches are independent: a failure of
// one does not prevent the other.
//
// A successful device fetch marks the connectivity point true.
func (b *Bridge) RefreshState(ctx context.Context) error {
	var errs []error

	device, err := b.fetchObject(ctx, EndpointDevice)
	switch {
	case isDisabled(err):
		return nil
	case err != nil:
		errs = append(errs, err)
	default:
		if err := b.registry.Write(ctx, points.AddrConnection, true, true); err != nil {
			errs = append(errs, err)
		}
		b.apply(ctx, EndpointDevice, device, DeviceFields)
	}

	display, err := b.fetchObject(ctx, EndpointDisplay)
	switch {
	case isDisabled(err):
	case err != nil:
		errs = append(errs, err)
	default:
		b.apply(ctx, EndpointDisplay, display, DisplayFields)
	}

	return errors.Join(errs...)
}

// RefreshApps fetches the installed apps, ensures the points of every
// widget exist and refreshes their index, package, vendor and version.
func (b *Bridge) RefreshApps(ctx context.Context) error {
	resp, err := b.client.Call(ctx, EndpointApps, http.MethodGet, nil)
	if err != nil {
		if isDisabled(err) {
			return nil
		}
		return err
	}

	var apps map[string]appPackage
	if err := json.Unmarshal(resp, &apps); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnexpectedResponse, EndpointApps, err)
	}

	keys := make([]string, 0, len(apps))
	for k := range apps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	widgets, created := 0, 0
	for _, key := range keys {
		app := apps[key]
		uuids := make([]string, 0, len(app.Widgets))
		for uuid := range app.Widgets {
			uuids = append(uuids, uuid)
		}
		sort.Strings(uuids)

		for _, uuid := range uuids {
			if !points.IsWidgetUUID(uuid) {
				b.logWarn("skipping widget with malformed id", "package", app.Package, "widget", uuid)
				continue
			}

			n, err := b.registry.EnsureAll(ctx, points.WidgetDefinitions(uuid, app.Package, app.Version))
			created += n
			if err != nil {
				errs = append(errs, fmt.Errorf("widget %s: %w", uuid, err))
				continue
			}

			b.writeWidget(ctx, uuid, app, app.Widgets[uuid])
			widgets++
		}
	}

	b.logDebug("apps refreshed", "widgets", widgets, "points_created", created)
	return errors.Join(errs...)
}

func (b *Bridge) writeWidget(ctx context.Context, uuid string, app appPackage, w appWidget) {
	values := []ProjectedValue{
		{Address: points.WidgetAddress(uuid, "index"), Value: w.Index},
		{Address: points.WidgetAddress(uuid, "package"), Value: app.Package},
		{Address: points.WidgetAddress(uuid, "vendor"), Value: app.Vendor},
		{Address: points.WidgetAddress(uuid, "version"), Value: app.Version},
	}
	for _, v := range values {
		if err := b.registry.Write(ctx, v.Address, v.Value, true); err != nil {
			b.logError("failed to update widget point", fmt.Errorf("%s: %w", v.Address, err))
		}
	}
}

// fetchObject GETs endpoint and decodes it as a JSON object.
func (b *Bridge) fetchObject(ctx context.Context, endpoint string) (map[string]any, error) {
	resp, err := b.client.Call(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(resp, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnexpectedResponse, endpoint, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %s: not an object", ErrUnexpectedResponse, endpoint)
	}
	return obj, nil
}
