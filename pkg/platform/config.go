package platform

import (
	"os"
	"strconv"
	"strings"
)

// lookup returns the trimmed value of key. Blank values count as unset.
func lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

// GetEnv returns the value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return fallback
}

// GetEnvInt returns key parsed as an int. Unparseable values fall back.
func GetEnvInt(key string, fallback int) int {
	if val, ok := lookup(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

// GetEnvFloat returns key parsed as a float64. Unparseable values fall back.
func GetEnvFloat(key string, fallback float64) float64 {
	if val, ok := lookup(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvBool accepts the forms strconv.ParseBool does. Anything else falls back.
func GetEnvBool(key string, fallback bool) bool {
	if val, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
