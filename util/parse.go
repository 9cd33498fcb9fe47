package util

import (
	"fmt"
	"strings"
)

// ParseSize parses a size such as "10MB", "512KB" or "2GB" into bytes.
// Unparseable or non-positive input returns defaultBytes.
func ParseSize(s string, defaultBytes int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBytes
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	}

	var val int64
	if _, err := fmt.Sscanf(s, "%d", &val); err == nil && val > 0 {
		return val * multiplier
	}
	return defaultBytes
}
