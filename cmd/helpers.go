package cmd

import (
	"fmt"
	"strings"

	"opskit/internal/audit"
)

// auditRecorder returns the shared audit recorder. Recording needs a working
// OpenSearch capability; with anything less the recorder is disabled and the
// decorated operations run unrecorded.
func auditRecorder() *audit.Recorder {
	sink, err := toolkit.OpenSearch()
	if err != nil {
		return audit.NewRecorder(nil)
	}
	return audit.NewRecorder(sink)
}

// parseKeyValues parses repeated "key=value" flag values into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
