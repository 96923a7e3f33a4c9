package geo

import (
	"context"
	"log/slog"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
)

const (
	storageLocationServicesKey = "re.notifica.geo.location_services_enabled"

	serviceLocationServices = "locationServices"
)

// Location is one position fix reported by the host.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Geo is the location component. Create one with Attach.
type Geo struct {
	notificare.BaseComponent
	client *notificare.Client
	log    *slog.Logger
}

// Attach registers the geo component on the client.
func Attach(client *notificare.Client) *Geo {
	g := &Geo{
		client: client,
		log:    client.Logger().With(logger.Component("geo")),
	}
	client.RegisterComponent(g)
	return g
}

func (g *Geo) Name() string { return "geo" }

func (g *Geo) ClearStorage(ctx context.Context) error {
	err := g.client.Store().Delete(ctx, storageLocationServicesKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}
	return nil
}

// HasLocationServicesEnabled reports whether the host opted into location
// updates.
func (g *Geo) HasLocationServicesEnabled(ctx context.Context) bool {
	enabled, err := store.GetJSON[bool](ctx, g.client.Store(), storageLocationServicesKey)
	if err != nil {
		return false
	}
	return *enabled
}

// EnableLocationUpdates records the host's opt-in.
func (g *Geo) EnableLocationUpdates(ctx context.Context) error {
	if !g.client.IsReady() {
		return notificare.ErrNotReady
	}
	if err := g.client.CheckService(serviceLocationServices); err != nil {
		return err
	}
	return store.SetJSON(ctx, g.client.Store(), storageLocationServicesKey, true)
}

// DisableLocationUpdates clears the opt-in and removes the device location
// from the backend.
func (g *Geo) DisableLocationUpdates(ctx context.Context) error {
	if !g.client.IsReady() {
		return notificare.ErrNotReady
	}
	if err := g.client.Store().Delete(ctx, storageLocationServicesKey); err != nil && !store.IsNotFound(err) {
		return err
	}
	return g.ClearLocation(ctx)
}

// UpdateLocation reports a position fix for the current device.
func (g *Geo) UpdateLocation(ctx context.Context, location Location) error {
	if !g.client.IsReady() {
		return notificare.ErrNotReady
	}
	if err := g.client.CheckService(serviceLocationServices); err != nil {
		return err
	}

	device, err := g.client.Device()
	if err != nil {
		return err
	}

	api, err := g.client.API()
	if err != nil {
		return err
	}

	_, err = api.Put(ctx, "/api/device/"+httpclient.EscapePath(device.ID)+"/location",
		httpclient.WithJSONBody(location),
	)
	return err
}

// ClearLocation removes the device location from the backend.
func (g *Geo) ClearLocation(ctx context.Context) error {
	device, err := g.client.Device()
	if err != nil {
		return err
	}

	api, err := g.client.API()
	if err != nil {
		return err
	}

	_, err = api.Delete(ctx, "/api/device/"+httpclient.EscapePath(device.ID)+"/location")
	return err
}
