package google

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient wraps the Google Sheets API.
type SheetsClient struct {
	svc *sheets.Service
}

// NewSheetsClient builds a Sheets client from a credentials file.
func NewSheetsClient(ctx context.Context, credentialsFile string) (*SheetsClient, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, opErr("create sheets client", err)
	}
	return &SheetsClient{svc: svc}, nil
}

// Spreadsheet describes a spreadsheet.
type Spreadsheet struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SheetInfo is one tab of a spreadsheet.
type SheetInfo struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Index int64  `json:"index"`
}

// SpreadsheetMeta is the metadata of a spreadsheet.
type SpreadsheetMeta struct {
	Title    string      `json:"title"`
	Locale   string      `json:"locale,omitempty"`
	TimeZone string      `json:"time_zone,omitempty"`
	Sheets   []SheetInfo `json:"sheets"`
}

// UpdateValuesResult reports a range update.
type UpdateValuesResult struct {
	UpdatedRange   string `json:"updated_range"`
	UpdatedRows    int64  `json:"updated_rows"`
	UpdatedColumns int64  `json:"updated_columns"`
	UpdatedCells   int64  `json:"updated_cells"`
}

// CreateSpreadsheet creates an empty spreadsheet.
func (c *SheetsClient) CreateSpreadsheet(ctx context.Context, title string) (*Spreadsheet, error) {
	resp, err := c.svc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("create spreadsheet %q", title), err)
	}

	title = ""
	if resp.Properties != nil {
		title = resp.Properties.Title
	}
	return &Spreadsheet{
		ID:    resp.SpreadsheetId,
		Title: title,
		URL:   "https://docs.google.com/spreadsheets/d/" + resp.SpreadsheetId,
	}, nil
}

// Values reads a range in A1 notation, e.g. "Sheet1!A1:B2".
func (c *SheetsClient) Values(ctx context.Context, spreadsheetID, rangeName string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeName).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("get values %s of %s", rangeName, spreadsheetID), err)
	}
	return toStringRows(resp.Values), nil
}

// UpdateValues writes rows to a range, interpreting input as raw values.
func (c *SheetsClient) UpdateValues(ctx context.Context, spreadsheetID, rangeName string, values [][]string) (*UpdateValuesResult, error) {
	body := &sheets.ValueRange{Values: toAnyRows(values)}
	resp, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rangeName, body).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("update values %s of %s", rangeName, spreadsheetID), err)
	}
	return &UpdateValuesResult{
		UpdatedRange:   resp.UpdatedRange,
		UpdatedRows:    resp.UpdatedRows,
		UpdatedColumns: resp.UpdatedColumns,
		UpdatedCells:   resp.UpdatedCells,
	}, nil
}

// AppendValues appends rows after the last row of a range.
func (c *SheetsClient) AppendValues(ctx context.Context, spreadsheetID, rangeName string, values [][]string) (*UpdateValuesResult, error) {
	body := &sheets.ValueRange{Values: toAnyRows(values)}
	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rangeName, body).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("append values to %s of %s", rangeName, spreadsheetID), err)
	}

	result := &UpdateValuesResult{}
	if resp.Updates != nil {
		result.UpdatedRange = resp.Updates.UpdatedRange
		result.UpdatedRows = resp.Updates.UpdatedRows
		result.UpdatedColumns = resp.Updates.UpdatedColumns
		result.UpdatedCells = resp.Updates.UpdatedCells
	}
	return result, nil
}

// ClearValues clears a range and returns the range that was cleared.
func (c *SheetsClient) ClearValues(ctx context.Context, spreadsheetID, rangeName string) (string, error) {
	resp, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, rangeName, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", opErr(fmt.Sprintf("clear values %s of %s", rangeName, spreadsheetID), err)
	}
	return resp.ClearedRange, nil
}

// Metadata returns the title, locale, and tabs of a spreadsheet.
func (c *SheetsClient) Metadata(ctx context.Context, spreadsheetID string) (*SpreadsheetMeta, error) {
	resp, err := c.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, opErr(fmt.Sprintf("get metadata of %s", spreadsheetID), err)
	}

	meta := &SpreadsheetMeta{}
	if resp.Properties != nil {
		meta.Title = resp.Properties.Title
		meta.Locale = resp.Properties.Locale
		meta.TimeZone = resp.Properties.TimeZone
	}
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		meta.Sheets = append(meta.Sheets, SheetInfo{
			ID:    sheet.Properties.SheetId,
			Title: sheet.Properties.Title,
			Index: sheet.Properties.Index,
		})
	}
	return meta, nil
}

func toAnyRows(values [][]string) [][]any {
	rows := make([][]any, len(values))
	for i, row := range values {
		rows[i] = make([]any, len(row))
		for j, cell := range row {
			rows[i][j] = cell
		}
	}
	return rows
}

func toStringRows(values [][]any) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows
}
