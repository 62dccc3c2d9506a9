package httpclient

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/ribbonapp/ribbon-core/internal/validation"
)

// Default client settings.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
	DefaultMaxRetryDelay  = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every relative endpoint.
	BaseURL string

	// Timeout bounds each attempt separately.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryBaseDelay is the backoff before the first retry.
	RetryBaseDelay time.Duration

	// MaxRetryDelay caps the pre-jitter backoff.
	MaxRetryDelay time.Duration

	// DefaultHeaders are sent with every request.
	DefaultHeaders map[string]string

	// RequestsPerSecond paces attempts client-side. Zero disables pacing.
	RequestsPerSecond float64
}

// DefaultConfig returns a Config with the default timeout and retry policy.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		MaxRetryDelay:  DefaultMaxRetryDelay,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, customValidation.HTTPURL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RetryBaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetryDelay, validation.Required, validation.Min(c.RetryBaseDelay)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
	)
	return customValidation.WrapValidationError(err)
}
