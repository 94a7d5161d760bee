package config

import (
	"fmt"

	"github.com/shopscan/shopscan/pkg/models"
)

func validate(c *Config) error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be > 0")
	}
	if c.BurstSize <= 0 {
		return fmt.Errorf("burst size must be > 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if c.BackoffFactor <= 0 {
		return fmt.Errorf("backoff factor must be > 0")
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure threshold must be > 0")
	}
	if c.RecoveryTimeout <= 0 {
		return fmt.Errorf("recovery timeout must be > 0")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be > 0")
	}
	for domain, profile := range c.ProductSelectors {
		for field := range profile {
			if !validField(field) {
				return fmt.Errorf("profile %s: unknown field %q", domain, field)
			}
		}
	}
	return nil
}

func validField(field string) bool {
	for _, f := range models.ProfileFields {
		if f == field {
			return true
		}
	}
	return false
}
