package formatting

import (
	"fmt"
	"io"
	"strings"
)

// TextFormatter provides plain line-oriented output for piping into other
// tools.
type TextFormatter struct {
	options Options
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(options Options) Formatter {
	return &TextFormatter{
		options: options,
	}
}

// Data renders strings verbatim, string slices one per line and everything
// else as indented JSON.
func (f *TextFormatter) Data(w io.Writer, v interface{}) error {
	switch d := v.(type) {
	case string:
		_, err := fmt.Fprintln(w, d)
		return err
	case []string:
		for _, line := range d {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, PrettyJSON(v))
		return err
	}
}

// Table renders rows tab-separated without headers or borders.
func (f *TextFormatter) Table(w io.Writer, headers []string, rows [][]string, v interface{}) error {
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}
