package resilience

import "time"

// FromConfig converts config values to a BreakerConfig. Non-positive values
// keep the defaults.
func FromConfig(name string, failures, cooldownSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if name != "" {
		cfg.Name = name
	}
	if failures > 0 {
		cfg.Failures = failures
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}
