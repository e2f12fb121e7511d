package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField reads an optional Go duration string from the
// config. Empty means unset and parses as zero; negative values are
// rejected because every consumer treats the result as a timeout or
// period.
func ParseDurationField(path, raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}
