package notificare

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
)

// Device transports. An absent transport or TransportNotificare marks a
// long-lived device with no native push channel.
const (
	TransportNotificare  = "Notificare"
	TransportWebPush     = "WebPush"
	TransportWebsitePush = "WebsitePush"
)

const (
	devicePlatform = "Go"

	// registrationMaxAge bounds how stale a registration may get before an
	// otherwise unchanged device re-registers as a keep-alive.
	registrationMaxAge = 24 * time.Hour
)

// DoNotDisturb is a device's do-not-disturb window, times as "HH:mm".
type DoNotDisturb struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Device is the durable local device identity, kept consistent with the
// backend by the device lifecycle component. It is created on the first
// successful registration and destroyed when the backend reports the device
// gone or on explicit deletion.
type Device struct {
	ID             string            `json:"id"`
	UserID         string            `json:"userId,omitempty"`
	UserName       string            `json:"userName,omitempty"`
	TimeZoneOffset float64           `json:"timeZoneOffset"`
	SDKVersion     string            `json:"sdkVersion"`
	AppVersion     string            `json:"appVersion"`
	UserAgent      string            `json:"userAgent"`
	Language       string            `json:"language"`
	Region         string            `json:"region"`
	Transport      string            `json:"transport,omitempty"`
	DND            *DoNotDisturb     `json:"dnd,omitempty"`
	UserData       map[string]string `json:"userData"`
	LastRegistered time.Time         `json:"lastRegistered"`
}

// IsLongLived reports whether the device has no native push channel.
func (d *Device) IsLongLived() bool {
	return d.Transport == "" || d.Transport == TransportNotificare
}

// Device returns the current device, or ErrDeviceUnavailable when none has
// been registered yet.
func (c *Client) Device() (*Device, error) {
	device := c.device.currentDevice()
	if device == nil {
		return nil, ErrDeviceUnavailable
	}
	return device, nil
}

type registrationParams struct {
	transport string
	token     string
	userID    string
	userName  string
	temporary bool
}

type deviceRegistrationPayload struct {
	DeviceID       string  `json:"deviceID"`
	OldDeviceID    string  `json:"oldDeviceID,omitempty"`
	UserID         string  `json:"userID,omitempty"`
	UserName       string  `json:"userName,omitempty"`
	Language       string  `json:"language"`
	Region         string  `json:"region"`
	Platform       string  `json:"platform"`
	Transport      string  `json:"transport"`
	SDKVersion     string  `json:"sdkVersion"`
	AppVersion     string  `json:"appVersion"`
	UserAgent      string  `json:"userAgent"`
	TimeZoneOffset float64 `json:"timeZoneOffset"`
	AllowedUI      *bool   `json:"allowedUI,omitempty"`
}

// deviceManager owns the stored device record: it is the only writer, and Go
// hosts may call the SDK from multiple goroutines. mu guards the in-memory
// record; regMu serializes entire registration cycles so two callers cannot
// interleave the change check, the REST call and the record update.
type deviceManager struct {
	BaseComponent
	client *Client

	regMu sync.Mutex

	mu      sync.Mutex
	current *Device
}

func (m *deviceManager) Name() string { return "device" }

func (m *deviceManager) Launch(ctx context.Context) error {
	stored, err := store.GetJSON[Device](ctx, m.client.store, storageDeviceKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	if stored == nil {
		if m.client.Options().IgnoreTemporaryDevices {
			m.client.log.Debug("no stored device and temporary devices are ignored")
			return nil
		}
		return m.createTemporaryDevice(ctx)
	}

	m.setCurrent(stored)

	err = m.register(ctx, registrationParams{
		transport: stored.Transport,
		token:     stored.ID,
		userID:    stored.UserID,
		userName:  stored.UserName,
	})
	if err != nil {
		if httpclient.IsNotFound(err) {
			return m.recoverFromDeletedDevice(ctx)
		}
		return err
	}

	m.registerTestDevice(ctx)
	return nil
}

func (m *deviceManager) Unlaunch(ctx context.Context) error {
	current := m.currentDevice()
	if current == nil {
		return nil
	}

	api, err := m.client.API()
	if err != nil {
		return err
	}

	if _, err := api.Delete(ctx, "/api/device/"+httpclient.EscapePath(current.ID)); err != nil {
		return fmt.Errorf("delete device registration: %w", err)
	}

	return m.ClearStorage(ctx)
}

func (m *deviceManager) ClearStorage(ctx context.Context) error {
	m.setCurrent(nil)
	return m.client.store.Delete(ctx, storageDeviceKey)
}

func (m *deviceManager) currentDevice() *Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	device := *m.current
	return &device
}

func (m *deviceManager) setCurrent(device *Device) {
	m.mu.Lock()
	m.current = device
	m.mu.Unlock()
}

func (m *deviceManager) createTemporaryDevice(ctx context.Context) error {
	return m.register(ctx, registrationParams{
		transport: TransportNotificare,
		token:     uuid.NewString(),
		temporary: true,
	})
}

// register performs one registration cycle: change detection, the REST call,
// and the local record update. Unchanged registrations younger than 24 hours
// are skipped entirely to bound backend load; anything older re-registers
// even with identical data as a keep-alive.
func (m *deviceManager) register(ctx context.Context, p registrationParams) error {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	api, err := m.client.API()
	if err != nil {
		return err
	}

	current := m.currentDevice()
	opts := m.client.Options()
	lang, region := m.client.deviceLocale()

	if !m.registrationChanged(current, p, lang, region, opts.ApplicationVersion) {
		m.client.log.Debug("skipping device registration, nothing changed",
			logger.DeviceID(p.token),
		)
		return nil
	}

	payload := deviceRegistrationPayload{
		DeviceID:       p.token,
		UserID:         p.userID,
		UserName:       p.userName,
		Language:       lang,
		Region:         region,
		Platform:       devicePlatform,
		Transport:      p.transport,
		SDKVersion:     Version,
		AppVersion:     opts.ApplicationVersion,
		UserAgent:      m.client.env.UserAgent(),
		TimeZoneOffset: m.client.env.TimeZoneOffset(),
	}
	if current != nil && current.ID != p.token {
		payload.OldDeviceID = current.ID
	}
	if p.temporary && current == nil {
		allowedUI := false
		payload.AllowedUI = &allowedUI
	}

	if current == nil {
		_, err = api.Post(ctx, "/api/device", httpclient.WithJSONBody(payload))
	} else {
		_, err = api.Put(ctx, "/api/device/"+httpclient.EscapePath(current.ID), httpclient.WithJSONBody(payload))
	}
	if err != nil {
		return err
	}

	device := &Device{
		ID:             p.token,
		UserID:         p.userID,
		UserName:       p.userName,
		TimeZoneOffset: payload.TimeZoneOffset,
		SDKVersion:     Version,
		AppVersion:     opts.ApplicationVersion,
		UserAgent:      payload.UserAgent,
		Language:       lang,
		Region:         region,
		Transport:      p.transport,
		UserData:       map[string]string{},
		LastRegistered: m.client.clock.Now(),
	}
	if current != nil {
		device.DND = current.DND
		if current.UserData != nil {
			device.UserData = current.UserData
		}
	}

	if err := store.SetJSON(ctx, m.client.store, storageDeviceKey, device); err != nil {
		return err
	}
	m.setCurrent(device)

	m.client.log.Debug("device registered", logger.DeviceID(device.ID))

	// Hold the event back until the launch completes so consumers never
	// observe device_registered before ready.
	if !m.client.setPendingRegistered(device) {
		m.client.Emit(EventDeviceRegistered, device)
	}
	return nil
}

func (m *deviceManager) registrationChanged(current *Device, p registrationParams, lang, region, appVersion string) bool {
	if current == nil {
		return true
	}

	changed := p.token != current.ID ||
		p.userID != current.UserID ||
		p.userName != current.UserName ||
		appVersion != current.AppVersion ||
		Version != current.SDKVersion ||
		m.client.env.TimeZoneOffset() != current.TimeZoneOffset ||
		lang != current.Language ||
		region != current.Region
	if changed {
		return true
	}

	return m.client.clock.Now().Sub(current.LastRegistered) >= registrationMaxAge
}

// recoverFromDeletedDevice handles a 404 on a device update: the backend
// purged the device, so every component clears its persisted keys, the local
// record is dropped and, unless temporary devices are ignored, a fresh device
// is created. When the recovery happens after launch, the session restarts
// against the new device; during launch the session component has not run yet
// and will start normally.
func (m *deviceManager) recoverFromDeletedDevice(ctx context.Context) error {
	m.client.log.Warn("device no longer exists on the backend, resetting local state")

	for _, comp := range m.client.snapshotComponents() {
		if err := comp.ClearStorage(ctx); err != nil {
			m.client.log.Warn("failed to clear component storage",
				logger.Component(comp.Name()),
				logger.Error(err),
			)
		}
	}

	if m.client.Options().IgnoreTemporaryDevices {
		return nil
	}

	if err := m.createTemporaryDevice(ctx); err != nil {
		return err
	}

	if m.client.IsReady() {
		if err := m.client.session.Launch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// registerTestDevice performs the one-time test-device registration when the
// host carries a nonce. Failures are logged, never surfaced.
func (m *deviceManager) registerTestDevice(ctx context.Context) {
	nonce := m.client.env.TestDeviceNonce()
	if nonce == "" {
		return
	}

	current := m.currentDevice()
	if current == nil {
		return
	}

	api, err := m.client.API()
	if err != nil {
		return
	}

	_, err = api.Put(ctx, "/api/support/testdevice/"+httpclient.EscapePath(nonce),
		httpclient.WithJSONBody(map[string]string{"deviceID": current.ID}),
	)
	if err != nil {
		m.client.log.Warn("failed to register test device", logger.Error(err))
	}
}

// deviceLocale derives the registration language and region from the
// configured override or the host locale.
func (c *Client) deviceLocale() (lang, region string) {
	locale := c.env.Locale()
	if opts := c.Options(); opts != nil && opts.Language != "" {
		locale = opts.Language
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return "en", "US"
	}

	base, _ := tag.Base()
	reg, _ := tag.Region()
	return base.String(), reg.String()
}

// UpdateUser associates the device with the given user, or clears the
// association when both values are empty. Requires a completed launch.
func (c *Client) UpdateUser(ctx context.Context, userID, userName string) error {
	if !c.IsReady() {
		return ErrNotReady
	}

	current := c.device.currentDevice()
	if current == nil {
		return ErrDeviceUnavailable
	}

	err := c.device.register(ctx, registrationParams{
		transport: current.Transport,
		token:     current.ID,
		userID:    userID,
		userName:  userName,
	})
	if err != nil && httpclient.IsNotFound(err) {
		return c.device.recoverFromDeletedDevice(ctx)
	}
	return err
}

// RegisterPushToken registers a push subscription token as the device
// identity, carrying the previous id so the backend migrates the record.
// Used by the push package when remote notifications are enabled.
func (c *Client) RegisterPushToken(ctx context.Context, transport, token string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if transport == "" || token == "" {
		return fmt.Errorf("notificare: transport and token are required")
	}

	current := c.device.currentDevice()
	params := registrationParams{
		transport: transport,
		token:     token,
	}
	if current != nil {
		params.userID = current.UserID
		params.userName = current.UserName
	}

	err := c.device.register(ctx, params)
	if err != nil && httpclient.IsNotFound(err) {
		if err := c.device.recoverFromDeletedDevice(ctx); err != nil {
			return err
		}
		return c.device.register(ctx, params)
	}
	return err
}

// RegisterTemporaryDevice replaces the current device with a fresh long-lived
// one, dropping any push transport. Used when remote notifications are
// disabled.
func (c *Client) RegisterTemporaryDevice(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	current := c.device.currentDevice()
	params := registrationParams{
		transport: TransportNotificare,
		token:     uuid.NewString(),
	}
	if current != nil {
		params.userID = current.UserID
		params.userName = current.UserName
	}
	return c.device.register(ctx, params)
}

// DeleteDevice removes the device registration from the backend and clears
// the local record.
func (c *Client) DeleteDevice(ctx context.Context) error {
	if !c.IsReady() {
		return ErrNotReady
	}
	return c.device.Unlaunch(ctx)
}

type userDataResponse struct {
	UserData map[string]string `json:"userData"`
}

// FetchUserData retrieves the device's user data from the backend.
func (c *Client) FetchUserData(ctx context.Context) (map[string]string, error) {
	if !c.IsReady() {
		return nil, ErrNotReady
	}

	current := c.device.currentDevice()
	if current == nil {
		return nil, ErrDeviceUnavailable
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	resp, err := api.Get(ctx, "/api/device/"+httpclient.EscapePath(current.ID)+"/userdata")
	if err != nil {
		return nil, err
	}

	var payload userDataResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	if payload.UserData == nil {
		payload.UserData = map[string]string{}
	}
	return payload.UserData, nil
}

// UpdateUserData replaces the device's user data.
func (c *Client) UpdateUserData(ctx context.Context, data map[string]string) error {
	if !c.IsReady() {
		return ErrNotReady
	}

	current := c.device.currentDevice()
	if current == nil {
		return ErrDeviceUnavailable
	}

	api, err := c.API()
	if err != nil {
		return err
	}

	_, err = api.Put(ctx, "/api/device/"+httpclient.EscapePath(current.ID)+"/userdata",
		httpclient.WithJSONBody(data),
	)
	if err != nil {
		return err
	}

	return c.device.mutateCurrent(ctx, func(d *Device) {
		d.UserData = data
	})
}

type dndResponse struct {
	DND *DoNotDisturb `json:"dnd"`
}

// FetchDoNotDisturb retrieves the device's do-not-disturb window, which may
// be nil when none is set.
func (c *Client) FetchDoNotDisturb(ctx context.Context) (*DoNotDisturb, error) {
	if !c.IsReady() {
		return nil, ErrNotReady
	}

	current := c.device.currentDevice()
	if current == nil {
		return nil, ErrDeviceUnavailable
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	resp, err := api.Get(ctx, "/api/device/"+httpclient.EscapePath(current.ID)+"/dnd")
	if err != nil {
		return nil, err
	}

	var payload dndResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	return payload.DND, nil
}

// UpdateDoNotDisturb sets the device's do-not-disturb window.
func (c *Client) UpdateDoNotDisturb(ctx context.Context, dnd DoNotDisturb) error {
	if !c.IsReady() {
		return ErrNotReady
	}

	current := c.device.currentDevice()
	if current == nil {
		return ErrDeviceUnavailable
	}

	api, err := c.API()
	if err != nil {
		return err
	}

	_, err = api.Put(ctx, "/api/device/"+httpclient.EscapePath(current.ID)+"/dnd",
		httpclient.WithJSONBody(dnd),
	)
	if err != nil {
		return err
	}

	return c.device.mutateCurrent(ctx, func(d *Device) {
		copied := dnd
		d.DND = &copied
	})
}

// ClearDoNotDisturb removes the device's do-not-disturb window.
func (c *Client) ClearDoNotDisturb(ctx context.Context) error {
	if !c.IsReady() {
		return ErrNotReady
	}

	current := c.device.currentDevice()
	if current == nil {
		return ErrDeviceUnavailable
	}

	api, err := c.API()
	if err != nil {
		return err
	}

	if _, err := api.Delete(ctx, "/api/device/"+httpclient.EscapePath(current.ID)+"/dnd"); err != nil {
		return err
	}

	return c.device.mutateCurrent(ctx, func(d *Device) {
		d.DND = nil
	})
}

// mutateCurrent applies fn to the in-memory record and re-serializes it,
// holding the manager lock across the whole read-modify-write.
func (m *deviceManager) mutateCurrent(ctx context.Context, fn func(*Device)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrDeviceUnavailable
	}
	fn(m.current)
	return store.SetJSON(ctx, m.client.store, storageDeviceKey, m.current)
}
