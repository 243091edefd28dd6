package formatting

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// Data renders v as one YAML document.
func (f *YAMLFormatter) Data(w io.Writer, v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// Table renders the underlying value; YAML output has no table form.
func (f *YAMLFormatter) Table(w io.Writer, headers []string, rows [][]string, v interface{}) error {
	return f.Data(w, v)
}
