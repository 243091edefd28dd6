package client

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports that a capability cannot be constructed
// because required settings are absent or unusable. It is raised before
// any construction or network activity happens.
type ConfigurationError struct {
	// Capability is the capability that was requested (e.g. "jira").
	Capability string

	// Missing lists the configuration fields that are unset.
	Missing []string

	// Message overrides the default format for cases beyond plain
	// missing fields, such as an unparseable value.
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing configuration for %s: %s", e.Capability, strings.Join(e.Missing, ", "))
}

// IsConfiguration checks if an error is a ConfigurationError, supporting
// wrapped errors.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// NewConfigurationError creates a ConfigurationError for missing fields.
func NewConfigurationError(capability string, missing ...string) *ConfigurationError {
	return &ConfigurationError{Capability: capability, Missing: missing}
}

// DuplicateExtensionError reports an attempt to register a second
// extension under an already-taken name. Registration is fail-fast so a
// name collision between two modules surfaces as an error instead of one
// extension silently shadowing the other.
type DuplicateExtensionError struct {
	// Name is the contested extension name.
	Name string
}

func (e *DuplicateExtensionError) Error() string {
	return fmt.Sprintf("extension %s already registered", e.Name)
}

// IsDuplicateExtension checks if an error is a DuplicateExtensionError,
// supporting wrapped errors.
func IsDuplicateExtension(err error) bool {
	var dupErr *DuplicateExtensionError
	return errors.As(err, &dupErr)
}
