package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/showroom/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer copies master-sheet snapshots into a Google spreadsheet, one tab per month sheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// PublishResult describes where a snapshot was written.
type PublishResult struct {
	SpreadsheetID  string
	SpreadsheetURL string
	Tab            string
	RowsWritten    int
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithService(service, config, logger), nil
}

// NewWriterWithService wraps an existing Sheets service.
func NewWriterWithService(service *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// Publish replaces the tab named after the snapshot's sheet with the snapshot's rows.
func (w *Writer) Publish(ctx context.Context, snap *model.MasterSheetSnapshot, highlight []int) (*PublishResult, error) {
	tab := TabName(snap)

	w.logger.Info("publishing master sheet",
		"tab", tab,
		"rows", len(snap.Rows))

	spreadsheet, err := w.getOrCreateSpreadsheet(ctx, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	sheetID, err := w.ensureTab(ctx, spreadsheet, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare tab %s: %w", tab, err)
	}

	if _, err := w.service.Spreadsheets.Values.Clear(spreadsheet.SpreadsheetId, quoteRange(tab, "A:ZZ"), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("failed to clear tab %s: %w", tab, err)
	}

	values := SnapshotValues(snap)
	if err := w.writeData(ctx, spreadsheet.SpreadsheetId, tab, values); err != nil {
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.HighlightNewDeals {
		requests := FormatRequests(sheetID, len(snap.Columns), highlight)
		_, err := w.service.Spreadsheets.BatchUpdate(spreadsheet.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("master sheet published",
		"spreadsheet_id", spreadsheet.SpreadsheetId,
		"rows_written", len(values))

	return &PublishResult{
		SpreadsheetID:  spreadsheet.SpreadsheetId,
		SpreadsheetURL: spreadsheet.SpreadsheetUrl,
		Tab:            tab,
		RowsWritten:    len(values),
	}, nil
}

// TabName picks the destination tab for a snapshot.
func TabName(snap *model.MasterSheetSnapshot) string {
	if name := snap.Name(); name != "" {
		return name
	}
	if snap != nil && snap.Summary.CurrentSheet != "" {
		return snap.Summary.CurrentSheet
	}
	return "Master Sheet"
}

// SnapshotValues converts a snapshot to a header row followed by one row per deal.
func SnapshotValues(snap *model.MasterSheetSnapshot) [][]any {
	values := make([][]any, 0, len(snap.Rows)+1)

	header := make([]any, len(snap.Columns))
	for i, col := range snap.Columns {
		header[i] = col
	}
	values = append(values, header)

	for _, row := range snap.Rows {
		cells := make([]any, len(snap.Columns))
		for i, col := range snap.Columns {
			v := row.Value(col)
			if v == nil {
				v = ""
			}
			cells[i] = v
		}
		values = append(values, cells)
	}

	return values
}

// FormatRequests builds the header, freeze and highlight formatting for a tab.
// highlight holds zero-based data row indices.
func FormatRequests(sheetID int64, columns int, highlight []int) []*sheets.Request {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(columns),
				},
			},
		},
	}

	for _, idx := range highlight {
		if idx < 0 {
			continue
		}
		// +1 skips the header row.
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(idx + 1),
					EndRowIndex:      int64(idx + 2),
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: &sheets.Color{Red: 0.85, Green: 0.95, Blue: 0.85},
					},
				},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}

	return requests
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets the configured spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, firstTab string) (*sheets.Spreadsheet, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return existing, nil
	}

	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: firstTab}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created, nil
}

// ensureTab returns the sheet id of tab, adding the tab when it does not exist.
func (w *Writer) ensureTab(ctx context.Context, spreadsheet *sheets.Spreadsheet, tab string) (int64, error) {
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return s.Properties.SheetId, nil
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheet.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet reply missing")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// writeData writes values to the tab in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, quoteRange(tab, fmt.Sprintf("A%d", i+1)), &sheets.ValueRange{
			Values: batch,
		}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

func quoteRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", tab, cells)
}
