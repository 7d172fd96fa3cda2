package runner

import (
	"math"
	"strings"
	"time"

	"github.com/gavelflow/gavel/model/graph"
)

// shouldRetry returns (retry?, delay) for a failed model invocation after
// the given number of completed attempts.
func (r *Runner) shouldRetry(cfg *graph.Retry, attempts int) (bool, time.Duration) {
	if cfg == nil {
		if attempts >= r.config.MaxModelAttempts {
			return false, 0
		}
		return true, r.config.RetryDelay
	}

	if strings.ToLower(cfg.Type) == "none" {
		return false, 0
	}

	max := cfg.MaxAttempts
	if max == 0 {
		max = r.config.MaxModelAttempts
	}
	if attempts >= max {
		return false, 0
	}

	baseDelay := r.config.RetryDelay
	if cfg.Delay != "" {
		if d, err := time.ParseDuration(cfg.Delay); err == nil {
			baseDelay = d
		}
	}

	switch strings.ToLower(cfg.Type) {
	case "exponential":
		mult := cfg.Multiplier
		if mult <= 1 {
			mult = 2
		}
		delay := float64(baseDelay) * math.Pow(mult, float64(attempts-1))
		if cfg.MaxDelay != "" {
			if md, err := time.ParseDuration(cfg.MaxDelay); err == nil {
				if time.Duration(delay) > md {
					delay = float64(md)
				}
			}
		}
		return true, time.Duration(delay)
	default: // fixed
		return true, baseDelay
	}
}
