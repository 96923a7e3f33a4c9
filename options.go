package notificare

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options holds the connection configuration required to reach the Notificare
// backend. Options are immutable once Configure succeeds: a second Configure
// call is a no-op and keeps the first call's values.
type Options struct {
	// ApplicationKey and ApplicationSecret authenticate every REST call via
	// Basic auth.
	ApplicationKey    string `env:"NOTIFICARE_APPLICATION_KEY" yaml:"applicationKey" json:"applicationKey"`
	ApplicationSecret string `env:"NOTIFICARE_APPLICATION_SECRET" yaml:"applicationSecret" json:"applicationSecret"`

	// ApplicationVersion is the embedding application's version, reported on
	// device registration.
	ApplicationVersion string `env:"NOTIFICARE_APPLICATION_VERSION" envDefault:"1.0" yaml:"applicationVersion" json:"applicationVersion"`

	// ServicesHost is the REST API base URL.
	ServicesHost string `env:"NOTIFICARE_SERVICES_HOST" envDefault:"https://push.notifica.re" yaml:"servicesHost" json:"servicesHost"`

	// DynamicLinkDomain is the host used to recognize dynamic links inside
	// url-scheme notifications.
	DynamicLinkDomain string `env:"NOTIFICARE_DYNAMIC_LINK_DOMAIN" envDefault:"ntc.re" yaml:"dynamicLinkDomain" json:"dynamicLinkDomain"`

	// Language optionally overrides the language/region derived from the
	// host locale, as a BCP 47 tag.
	Language string `env:"NOTIFICARE_LANGUAGE" yaml:"language,omitempty" json:"language,omitempty"`

	// IgnoreTemporaryDevices disables automatic creation of non-push devices.
	// With this set, no device exists until a push token is registered.
	IgnoreTemporaryDevices bool `env:"NOTIFICARE_IGNORE_TEMPORARY_DEVICES" yaml:"ignoreTemporaryDevices" json:"ignoreTemporaryDevices"`
}

// Validate checks that the options are usable for Configure.
func (o Options) Validate() error {
	if o.ApplicationKey == "" {
		return errors.New("notificare: application key is required")
	}
	if o.ApplicationSecret == "" {
		return errors.New("notificare: application secret is required")
	}
	if o.ServicesHost == "" {
		return errors.New("notificare: services host is required")
	}
	return nil
}

var defaultEnvLoaded sync.Once

// ConfigFromEnv builds Options from environment variables, loading a .env
// file once if present.
func ConfigFromEnv() (*Options, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})

	var opts Options
	if err := env.Parse(&opts); err != nil {
		return nil, fmt.Errorf("notificare: parse environment: %w", err)
	}
	return &opts, nil
}

// LoadOptions reads Options from a YAML or JSON document at path. This is the
// well-known configuration resource used for automatic configuration when
// Launch is called before Configure.
func LoadOptions(path string) (*Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notificare: read options file: %w", err)
	}

	var opts Options
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("notificare: parse options file %s: %w", path, err)
	}
	return &opts, nil
}
