package plugin

import (
	"errors"
	"fmt"
)

// ErrRegistryNotInitialized is returned by Default when the process-wide
// registry has not been bound to a host application yet. Seeing it means
// startup wiring ran out of order.
var ErrRegistryNotInitialized = errors.New("plugin registry not initialized: call plugin.Initialize with the root command first")

// DuplicatePluginError reports an attempt to register a second plugin
// under an already-taken name. Registration is fail-fast: a silent skip
// could mask a packaging bug where two plugins derive the same name.
type DuplicatePluginError struct {
	// Name is the contested registration name.
	Name string
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin %s already registered", e.Name)
}

// IsDuplicatePlugin checks if an error is a DuplicatePluginError,
// supporting wrapped errors.
func IsDuplicatePlugin(err error) bool {
	var dupErr *DuplicatePluginError
	return errors.As(err, &dupErr)
}
