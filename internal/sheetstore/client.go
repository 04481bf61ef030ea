// Package sheetstore wraps the Google Sheets and Drive APIs behind the small
// operation set the agent needs: open-or-create spreadsheets, worksheet
// management, row counts, batch appends, and single-cell access. It is the
// only package that talks to the Google API client.
package sheetstore

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client holds the authenticated service handles. Authentication happens
// once in New; every caller receives the client as an explicit dependency.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

func New(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	opts := []option.ClientOption{
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	}

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	slog.InfoContext(ctx, "sheet store authenticated")
	return &Client{sheets: sheetsSvc, drive: driveSvc}, nil
}

// OpenByTitle looks up a spreadsheet by exact title in the service account's
// drive. found is false when no spreadsheet with that title exists.
func (c *Client) OpenByTitle(ctx context.Context, title string) (id string, found bool, err error) {
	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false", title)
	list, err := c.drive.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("listing spreadsheets: %w", err)
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].Id, true, nil
}

func (c *Client) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	ss, err := c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet %q: %w", title, err)
	}
	return ss.SpreadsheetId, nil
}

// Share grants write access so the spreadsheet shows up outside the service
// account's drive.
func (c *Client) Share(ctx context.Context, spreadsheetID, email string) error {
	_, err := c.drive.Permissions.Create(spreadsheetID, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sharing spreadsheet with %q: %w", email, err)
	}
	return nil
}

// WorksheetRowCount returns the number of populated rows in the worksheet's
// first column, the header included. found is false when the worksheet does
// not exist in the spreadsheet.
func (c *Client) WorksheetRowCount(ctx context.Context, spreadsheetID, worksheet string) (count int, found bool, err error) {
	_, exists, err := c.worksheetID(ctx, spreadsheetID, worksheet)
	if err != nil || !exists {
		return 0, false, err
	}

	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, fmt.Sprintf("'%s'!A:A", worksheet)).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("reading row count of %q: %w", worksheet, err)
	}
	return len(resp.Values), true, nil
}

// CreateWorksheet adds a worksheet, writes its header row, and applies the
// bold/frozen header formatting. Formatting failures are cosmetic and only
// logged.
func (c *Client) CreateWorksheet(ctx context.Context, spreadsheetID, worksheet string, header []string) error {
	resp, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title:          worksheet,
					GridProperties: &sheets.GridProperties{RowCount: 1000, ColumnCount: 20},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("adding worksheet %q: %w", worksheet, err)
	}

	if err := c.AppendRows(ctx, spreadsheetID, worksheet, [][]string{header}); err != nil {
		return fmt.Errorf("writing header of %q: %w", worksheet, err)
	}

	sheetID := resp.Replies[0].AddSheet.Properties.SheetId
	if err := c.formatHeader(ctx, spreadsheetID, sheetID); err != nil {
		slog.WarnContext(ctx, "header formatting failed", "worksheet", worksheet, "error", err)
	}
	return nil
}

// AppendRows writes all rows in a single batch append. The API applies the
// batch atomically, so a returned error means no rows landed.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) error {
	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	_, err := c.sheets.Spreadsheets.Values.Append(spreadsheetID, fmt.Sprintf("'%s'!A1", worksheet), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %d rows to %q: %w", len(rows), worksheet, err)
	}
	return nil
}

// ReadCell returns the value at an A1 range like "System_Memory!B2". found
// is false when the cell is empty.
func (c *Client) ReadCell(ctx context.Context, spreadsheetID, a1 string) (value string, found bool, err error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, a1).Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("reading cell %q: %w", a1, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", false, nil
	}
	s, ok := resp.Values[0][0].(string)
	if !ok {
		return fmt.Sprint(resp.Values[0][0]), true, nil
	}
	return s, true, nil
}

// UpdateRow overwrites cells starting at an A1 anchor like
// "System_Memory!A2" with the given values, one cell per value.
func (c *Client) UpdateRow(ctx context.Context, spreadsheetID, a1 string, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}

	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, a1, &sheets.ValueRange{Values: [][]any{cells}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating row %q: %w", a1, err)
	}
	return nil
}

func (c *Client) worksheetID(ctx context.Context, spreadsheetID, worksheet string) (int64, bool, error) {
	ss, err := c.sheets.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("reading spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == worksheet {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

func (c *Client) formatHeader(ctx context.Context, spreadsheetID string, sheetID int64) error {
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat.bold",
				},
			},
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        sheetID,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		},
	}).Context(ctx).Do()
	return err
}
