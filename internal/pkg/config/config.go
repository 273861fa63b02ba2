package config

import (
	"io"
	"time"
)

// Config defines the read surface the application needs from its
// configuration backend. Implementations handle missing keys and type
// conversion themselves, returning zero values rather than errors.
type Config interface {
	io.Closer

	// GetString retrieves the value for key as a string.
	GetString(key string) string

	// GetBool retrieves the value for key as a bool.
	GetBool(key string) bool

	// GetInt retrieves the value for key as an int.
	GetInt(key string) int

	// GetInt32 retrieves the value for key as an int32.
	GetInt32(key string) int32

	// GetFloat64 retrieves the value for key as a float64.
	GetFloat64(key string) float64

	// GetSecond retrieves the value for key as a duration in seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves the value for key as a duration in minutes.
	GetMinute(key string) time.Duration

	// GetArray retrieves the value for key as a slice of strings.
	// The value is stored either as a native list or as
	// <element1>,<element2>,... in a single string.
	GetArray(key string) []string
}
