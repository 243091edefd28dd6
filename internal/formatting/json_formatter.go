package formatting

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// Data renders v as one JSON document. Quiet mode emits compact JSON.
func (f *JSONFormatter) Data(w io.Writer, v interface{}) error {
	if f.options.Quiet {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("format json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	_, err := fmt.Fprintln(w, PrettyJSON(v))
	return err
}

// Table renders the underlying value; JSON output has no table form.
func (f *JSONFormatter) Table(w io.Writer, headers []string, rows [][]string, v interface{}) error {
	return f.Data(w, v)
}
