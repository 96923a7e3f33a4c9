package notificare

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// Environment abstracts the host the SDK runs in. StandardEnvironment covers
// headless hosts; embedding applications with a UI should provide their own
// implementation, notably for OpenURL.
type Environment interface {
	// UserAgent identifies the host in device registrations.
	UserAgent() string

	// Locale returns the host locale as a BCP 47 tag, e.g. "en-US".
	Locale() string

	// TimeZoneOffset returns the local UTC offset in hours.
	TimeZoneOffset() float64

	// TestDeviceNonce returns the one-time test-device nonce carried by the
	// host, or empty when none is present.
	TestDeviceNonce() string

	// OpenURL navigates the host to the given URL.
	OpenURL(ctx context.Context, rawURL string) error

	// IsAppleSafari reports whether the host is Safari on an Apple platform,
	// which selects the Apple Wallet variant for passbook notifications.
	IsAppleSafari() bool
}

// Timer is a cancellable deferred call handle.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call was
	// stopped before it ran.
	Stop() bool
}

// Clock abstracts time for the SDK's grace windows and presentation delays so
// tests can drive them without real timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// NewSystemClock returns a Clock backed by the time package.
func NewSystemClock() Clock { return systemClock{} }

// StandardEnvironment is a reasonable Environment for headless hosts.
// OpenURL only logs the destination; hosts that can actually navigate or
// spawn a browser should override it.
type StandardEnvironment struct {
	locale          string
	testDeviceNonce string
	log             *slog.Logger
}

// StandardEnvironmentOption configures a StandardEnvironment.
type StandardEnvironmentOption func(*StandardEnvironment)

// WithEnvironmentLocale overrides the detected locale.
func WithEnvironmentLocale(locale string) StandardEnvironmentOption {
	return func(e *StandardEnvironment) {
		if locale != "" {
			e.locale = locale
		}
	}
}

// WithTestDeviceNonce sets the one-time test-device nonce.
func WithTestDeviceNonce(nonce string) StandardEnvironmentOption {
	return func(e *StandardEnvironment) {
		e.testDeviceNonce = nonce
	}
}

// WithEnvironmentLogger sets the logger used by OpenURL.
func WithEnvironmentLogger(log *slog.Logger) StandardEnvironmentOption {
	return func(e *StandardEnvironment) {
		if log != nil {
			e.log = log
		}
	}
}

// NewStandardEnvironment builds an Environment from process-level information:
// locale from LC_ALL/LANG, timezone from the local zone, nonce from
// NOTIFICARE_TEST_DEVICE_NONCE.
func NewStandardEnvironment(opts ...StandardEnvironmentOption) *StandardEnvironment {
	e := &StandardEnvironment{
		locale:          detectLocale(),
		testDeviceNonce: os.Getenv("NOTIFICARE_TEST_DEVICE_NONCE"),
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *StandardEnvironment) UserAgent() string {
	return fmt.Sprintf("notificare-go/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

func (e *StandardEnvironment) Locale() string { return e.locale }

func (e *StandardEnvironment) TimeZoneOffset() float64 {
	_, offset := time.Now().Zone()
	return float64(offset) / 3600
}

func (e *StandardEnvironment) TestDeviceNonce() string { return e.testDeviceNonce }

func (e *StandardEnvironment) OpenURL(ctx context.Context, rawURL string) error {
	e.log.Info("open url requested", slog.String("url", rawURL))
	return nil
}

func (e *StandardEnvironment) IsAppleSafari() bool { return false }

func detectLocale() string {
	for _, name := range []string{"LC_ALL", "LANG"} {
		v := os.Getenv(name)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		// LANG values look like "en_US.UTF-8"; normalize to a BCP 47 tag.
		if i := strings.IndexByte(v, '.'); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return "en-US"
}
