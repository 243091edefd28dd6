package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
)

var googleFlags cli.CommandFlags

var (
	googleInsertAt  int64
	googleMatchCase bool
	googleSheetRows []string
)

// googleCmd groups the Google Workspace subcommands.
var googleCmd = &cobra.Command{
	Use:   "google",
	Short: "Work with Google Docs and Sheets",
	Long: `Create and edit Google Docs documents and Sheets spreadsheets.

Authentication uses the service account credentials file from
google_credentials_file.

Examples:
  opskit google docs create "Incident review 2024-06-01"
  opskit google docs replace 1aBcD "DRAFT" "FINAL"
  opskit google sheets append 1aBcD "Sheet1!A1" --row "host,status"`,
}

var googleDocsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Work with Google Docs documents",
}

var googleSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Work with Google Sheets spreadsheets",
}

func newGoogleDocsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create TITLE",
		Short: "Create an empty document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := toolkit.Docs(cmd.Context())
			if err != nil {
				return err
			}
			f, err := googleFlags.Formatter()
			if err != nil {
				return err
			}
			doc, err := docs.CreateDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), doc)
		},
	}
}

func newGoogleDocsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a document with its plain text content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := toolkit.Docs(cmd.Context())
			if err != nil {
				return err
			}
			f, err := googleFlags.Formatter()
			if err != nil {
				return err
			}
			doc, err := docs.Document(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), doc)
		},
	}
}

func newGoogleDocsInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert ID TEXT",
		Short: "Insert text into a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := toolkit.Docs(cmd.Context())
			if err != nil {
				return err
			}
			result, err := docs.InsertText(cmd.Context(), args[0], args[1], googleInsertAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted text into %s\n", result.DocumentID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&googleInsertAt, "at", 1, "Character index to insert at (1 is the document start)")
	return cmd
}

func newGoogleDocsReplaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace ID FIND REPLACE",
		Short: "Replace all occurrences of a string in a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := toolkit.Docs(cmd.Context())
			if err != nil {
				return err
			}
			result, err := docs.ReplaceText(cmd.Context(), args[0], args[1], args[2], googleMatchCase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replaced %d occurrence(s) in %s\n", result.Replacements, result.DocumentID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&googleMatchCase, "match-case", false, "Match case when searching")
	return cmd
}

func newGoogleSheetsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create TITLE",
		Short: "Create an empty spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := toolkit.Sheets(cmd.Context())
			if err != nil {
				return err
			}
			f, err := googleFlags.Formatter()
			if err != nil {
				return err
			}
			sheet, err := sheets.CreateSpreadsheet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), sheet)
		},
	}
}

func newGoogleSheetsValuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "values ID RANGE",
		Short: "Read a cell range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := toolkit.Sheets(cmd.Context())
			if err != nil {
				return err
			}
			f, err := googleFlags.Formatter()
			if err != nil {
				return err
			}
			values, err := sheets.Values(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			width := 0
			for _, row := range values {
				if len(row) > width {
					width = len(row)
				}
			}
			headers := make([]string, width)
			for i := range headers {
				headers[i] = columnLabel(i)
			}
			return f.Table(cmd.OutOrStdout(), headers, values, values)
		},
	}
}

func newGoogleSheetsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID RANGE",
		Short: "Overwrite a cell range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := toolkit.Sheets(cmd.Context())
			if err != nil {
				return err
			}
			result, err := sheets.UpdateValues(cmd.Context(), args[0], args[1], parseSheetRows(googleSheetRows))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d cell(s) in %s\n", result.UpdatedCells, result.UpdatedRange)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&googleSheetRows, "row", nil, "Row values, comma separated (repeatable)")
	_ = cmd.MarkFlagRequired("row")
	return cmd
}

func newGoogleSheetsAppendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append ID RANGE",
		Short: "Append rows after a cell range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := toolkit.Sheets(cmd.Context())
			if err != nil {
				return err
			}
			result, err := sheets.AppendValues(cmd.Context(), args[0], args[1], parseSheetRows(googleSheetRows))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appended %d cell(s) to %s\n", result.UpdatedCells, result.UpdatedRange)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&googleSheetRows, "row", nil, "Row values, comma separated (repeatable)")
	_ = cmd.MarkFlagRequired("row")
	return cmd
}

func newGoogleSheetsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear ID RANGE",
		Short: "Clear a cell range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := toolkit.Sheets(cmd.Context())
			if err != nil {
				return err
			}
			cleared, err := sheets.ClearValues(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cleared)
			return nil
		},
	}
}

func newGoogleSheetsMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata ID",
		Short: "Show spreadsheet metadata and its sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := toolkit.Sheets(cmd.Context())
			if err != nil {
				return err
			}
			f, err := googleFlags.Formatter()
			if err != nil {
				return err
			}
			meta, err := sheets.Metadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(meta.Sheets))
			for _, s := range meta.Sheets {
				rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Title, strconv.FormatInt(s.Index, 10)})
			}
			return f.Table(cmd.OutOrStdout(), []string{"ID", "TITLE", "INDEX"}, rows, meta)
		},
	}
}

// parseSheetRows turns repeated --row "a,b,c" flags into a value grid.
func parseSheetRows(rows []string) [][]string {
	values := make([][]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, strings.Split(row, ","))
	}
	return values
}

// columnLabel converts a zero-based column number to its spreadsheet letter
// label (A, B, ..., Z, AA, ...).
func columnLabel(n int) string {
	label := ""
	n++
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}

func init() {
	rootCmd.AddCommand(googleCmd)
	cli.RegisterOutputFlags(googleCmd, &googleFlags)

	googleCmd.AddCommand(googleDocsCmd)
	googleDocsCmd.AddCommand(newGoogleDocsCreateCmd())
	googleDocsCmd.AddCommand(newGoogleDocsShowCmd())
	googleDocsCmd.AddCommand(newGoogleDocsInsertCmd())
	googleDocsCmd.AddCommand(newGoogleDocsReplaceCmd())

	googleCmd.AddCommand(googleSheetsCmd)
	googleSheetsCmd.AddCommand(newGoogleSheetsCreateCmd())
	googleSheetsCmd.AddCommand(newGoogleSheetsValuesCmd())
	googleSheetsCmd.AddCommand(newGoogleSheetsUpdateCmd())
	googleSheetsCmd.AddCommand(newGoogleSheetsAppendCmd())
	googleSheetsCmd.AddCommand(newGoogleSheetsClearCmd())
	googleSheetsCmd.AddCommand(newGoogleSheetsMetadataCmd())
}
