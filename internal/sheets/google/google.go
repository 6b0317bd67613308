// Package google mirrors expenses into a Google Sheets spreadsheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlog/internal/core"
	ports "spendlog/internal/sheets"
)

const dateLayout = "2006-01-02"

// Client writes expense rows to a single sheet. Column A holds the expense
// id, which Remove uses to locate rows.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var (
	_ ports.ExpenseAppender = (*Client)(nil)
	_ ports.ExpenseRemover  = (*Client)(nil)
)

// Options selects the spreadsheet and the OAuth token used to reach it.
// Exactly one of TokenJSON and TokenFile must be set.
type Options struct {
	SpreadsheetID string
	SheetName     string
	TokenJSON     string
	TokenFile     string
}

// NewClient builds a Sheets client from a stored OAuth token.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.SheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	tokenJSON := []byte(opts.TokenJSON)
	if len(tokenJSON) == 0 {
		if opts.TokenFile == "" {
			return nil, errors.New("missing OAuth token")
		}
		data, err := os.ReadFile(opts.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("read OAuth token file: %w", err)
		}
		tokenJSON = data
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithTokenSource(oauth2.StaticTokenSource(&token)),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
	}, nil
}

// Append writes the expense as the next row and returns its range.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// If the id already has a row, overwrite it in place so replayed
	// update events do not duplicate rows.
	rowIndex, err := c.findRow(ctx, e.ID)
	if err != nil {
		return "", err
	}

	if rowIndex < 0 {
		rng := fmt.Sprintf("%s!A:A", c.sheetName)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
		}
		rowIndex = len(resp.Values)
	}

	rowNumber := rowIndex + 1
	dataRange := fmt.Sprintf("%s!A%d:F%d", c.sheetName, rowNumber, rowNumber)
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// Remove deletes the row holding the expense id. Missing ids are ignored.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rowIndex, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if rowIndex < 0 {
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex) + 1,
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", rowIndex+1, c.sheetName, err)
	}
	return nil
}

// findRow returns the zero-based row index whose first cell holds id, or
// -1 when no row matches.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return findRowIndex(resp.Values, id), nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// expenseRow lays out the spreadsheet columns:
// A id, B date, C title, D category, E amount, F description.
func expenseRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.Format(dateLayout),
		e.Title,
		e.Category,
		e.Amount,
		e.Description,
	}
}

func findRowIndex(values [][]any, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(fmt.Sprint(row[0]))
		parsed, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			continue
		}
		if parsed == id {
			return i
		}
	}
	return -1
}
