package domain

import (
	"errors"
	"fmt"
)

// Backup error taxonomy. Every failure surfaced by a run wraps one of these.
var (
	// ErrConfiguration marks missing or invalid settings. Fatal to the run.
	ErrConfiguration = errors.New("configuration error")
	// ErrIO marks local file read/write failures. Fatal to one category.
	ErrIO = errors.New("io error")
	// ErrDump marks a database dump failure after every strategy was tried.
	ErrDump = errors.New("dump error")
	// ErrNetwork marks a transport failure or a non-2xx response.
	ErrNetwork = errors.New("network error")
	// ErrRetention marks a failed local deletion. Never fatal.
	ErrRetention = errors.New("retention error")
	// ErrRunInProgress is returned when a run is already executing.
	ErrRunInProgress = errors.New("a backup run is already in progress")
)

// ConfigError names the offending setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
