package utils

import (
	"strconv"
	"strings"
	"time"
)

// ClampDuration limits a duration between min and max
func ClampDuration(value, min, max time.Duration) time.Duration {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ParseBool parses a boolean flag, returning fallback for empty or invalid input
func ParseBool(value string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// ParseInt parses an integer, returning fallback for empty or invalid input
func ParseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// ParseDuration parses a Go duration ("500ms", "1s"), returning fallback for empty or invalid input
func ParseDuration(value string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
