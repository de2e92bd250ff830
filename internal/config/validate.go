package config

import (
	"fmt"
	"net/url"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Host.TokenSecret) < 32 {
		return fmt.Errorf("host.token_secret must be at least 32 characters (got %d)", len(c.Host.TokenSecret))
	}

	if err := c.Sketch2Code.validate(); err != nil {
		return fmt.Errorf("sketch2code: %w", err)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0 (got %d)", c.Server.MaxBodyBytes)
	}

	if c.Server.RemoteRatePerMinute < 0 {
		return fmt.Errorf("server.remote_rate_per_minute must be >= 0 (got %d)", c.Server.RemoteRatePerMinute)
	}

	return nil
}

func (s *Sketch2CodeConfig) validate() error {
	if err := ValidateBaseURL(s.APIURL); err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if err := ValidateBaseURL(s.BlobURL); err != nil {
		return fmt.Errorf("blob_url: %w", err)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0 (got %v)", s.RequestTimeout)
	}
	if s.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be > 0 (got %d)", s.MaxConcurrent)
	}
	return nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
