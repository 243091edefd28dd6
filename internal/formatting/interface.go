// Package formatting renders command results in the output formats the CLI
// supports (text, json, yaml, table). Commands pick a formatter through New
// and hand it the writer of the invoking cobra command.
package formatting

import (
	"fmt"
	"io"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"  // Plain line-oriented output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
	FormatTable OutputFormat = "table" // Rich table output
)

// ParseOutputFormat validates a format name coming from a CLI flag. The
// empty string selects the table format.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case "":
		return FormatTable, nil
	case FormatText, FormatJSON, FormatYAML, FormatTable:
		return OutputFormat(name), nil
	}
	return "", fmt.Errorf("unknown output format %q (expected text, json, yaml or table)", name)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// Formatter renders command results.
type Formatter interface {
	// Data renders an arbitrary value.
	Data(w io.Writer, v interface{}) error

	// Table renders tabular data. v carries the underlying value for
	// formats that serialize instead of drawing a table.
	Table(w io.Writer, headers []string, rows [][]string, v interface{}) error
}

// New creates the appropriate formatter for the requested format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatText:
		return NewTextFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}
