package formatting

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// Table renders headers and rows as one rounded-border table. An empty row
// set prints a short notice instead of table chrome.
func (f *TableFormatter) Table(w io.Writer, headers []string, rows [][]string, v interface{}) error {
	if len(rows) == 0 {
		if f.options.Quiet {
			return nil
		}
		_, err := fmt.Fprintln(w, "No results")
		return err
	}

	t := f.createTable(w)
	t.AppendHeader(f.headerRow(headers))
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}
	t.Render()
	return nil
}

// Data renders maps as KEY/VALUE tables, strings verbatim and everything
// else as indented JSON.
func (f *TableFormatter) Data(w io.Writer, v interface{}) error {
	switch d := v.(type) {
	case map[string]string:
		generic := make(map[string]interface{}, len(d))
		for k, val := range d {
			generic[k] = val
		}
		return f.formatObjectData(w, generic)
	case map[string]interface{}:
		return f.formatObjectData(w, d)
	case string:
		_, err := fmt.Fprintln(w, d)
		return err
	default:
		_, err := fmt.Fprintln(w, PrettyJSON(v))
		return err
	}
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) headerRow(headers []string) table.Row {
	row := make(table.Row, len(headers))
	for i, h := range headers {
		if f.options.Color {
			row[i] = text.FgHiCyan.Sprint(h)
		} else {
			row[i] = h
		}
	}
	return row
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(w io.Writer, data map[string]interface{}) error {
	t := f.createTable(w)
	t.AppendHeader(f.headerRow([]string{"KEY", "VALUE"}))

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		valueStr := fmt.Sprintf("%v", data[key])
		if len(valueStr) > 100 {
			valueStr = valueStr[:97] + "..."
		}
		t.AppendRow(table.Row{key, valueStr})
	}

	t.Render()
	return nil
}
