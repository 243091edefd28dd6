package cli

import (
	"github.com/spf13/cobra"

	"opskit/internal/formatting"
)

// CommandFlags holds the common flag values shared by commands that render
// results. Command groups embed one instance and register it once.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (text, json, yaml, table)
	OutputFormat string
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// NoColor disables colored table output
	NoColor bool
}

// RegisterOutputFlags registers the common output flags on cmd. All command
// groups share the flag names so scripts can rely on them.
//
// The registered flags are:
//   - --output/-o: Output format (text, json, yaml, table), default: "table"
//   - --quiet/-q: Suppress non-essential output
//   - --no-color: Disable colored output
func RegisterOutputFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (text, json, yaml, table)")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
}

// ShowProgress reports whether a progress spinner is appropriate. Quiet mode
// and the structured formats (json, yaml) must keep stdout and stderr clean
// for piping.
func (f *CommandFlags) ShowProgress() bool {
	if f.Quiet {
		return false
	}
	switch f.OutputFormat {
	case "", string(formatting.FormatTable), string(formatting.FormatText):
		return true
	}
	return false
}

// Formatter builds the formatter selected by the flags. An unknown output
// format returns an error naming the accepted values.
func (f *CommandFlags) Formatter() (formatting.Formatter, error) {
	format, err := formatting.ParseOutputFormat(f.OutputFormat)
	if err != nil {
		return nil, err
	}
	return formatting.New(formatting.Options{
		Format: format,
		Quiet:  f.Quiet,
		Color:  !f.NoColor,
	}), nil
}
