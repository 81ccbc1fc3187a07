package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

// DefaultWorksheet is used when no worksheet name is configured.
const DefaultWorksheet = "Events"

const (
	newSheetRows    = 1000
	newSheetColumns = 15
)

// SheetHeaders is the header row written above the ledger rows.
var SheetHeaders = []string{
	"Title", "Date", "Time", "Event URL", "Description", "Venue", "Address",
	"Online", "Group Name", "Group URL", "Sales Rep", "Status",
}

// NewSheetsService builds a Sheets API client from a service-account key file.
func NewSheetsService(ctx context.Context, credentialsPath string, opts ...option.ClientOption) (*sheets.Service, error) {
	path, err := ledger.ExpandPath(credentialsPath)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service account key: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(jwt.Client(ctx))}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return svc, nil
}

// SheetsSync mirrors the full ledger into one worksheet.
type SheetsSync struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

// NewSheetsSync creates a SheetsSync.
func NewSheetsSync(svc *sheets.Service, spreadsheetID, worksheet string) (*SheetsSync, error) {
	if svc == nil {
		return nil, errors.New("sheets service is required")
	}
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}
	return &SheetsSync{svc: svc, spreadsheetID: spreadsheetID, worksheet: worksheet}, nil
}

// Name returns the integration name.
func (s *SheetsSync) Name() string {
	return "google_sheets"
}

// Dispatch rewrites the worksheet with batch.Ledger.
func (s *SheetsSync) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	return s.Write(ctx, batch.Ledger)
}

// Write clears the worksheet, creating it if needed, and writes the header
// and one row per event in ledger order.
func (s *SheetsSync) Write(ctx context.Context, events []*event.Event) error {
	if err := s.ensureWorksheet(ctx); err != nil {
		return err
	}

	rng := quoteSheet(s.worksheet)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing worksheet: %w", err)
	}

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng+"!A1", &sheets.ValueRange{Values: SheetRows(events)}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("writing worksheet: %w", err)
	}

	logger.Info("Google Sheets updated", logger.Fields{
		"worksheet": s.worksheet,
		"rows":      len(events),
	})
	return nil
}

func (s *SheetsSync) ensureWorksheet(ctx context.Context) error {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: s.worksheet,
					GridProperties: &sheets.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("creating worksheet %s: %w", s.worksheet, err)
	}
	logger.Info("Created worksheet", logger.Fields{"worksheet": s.worksheet})
	return nil
}

// SheetRows returns the header followed by one row per event.
func SheetRows(events []*event.Event) [][]interface{} {
	rows := make([][]interface{}, 0, len(events)+1)
	rows = append(rows, toCells(SheetHeaders))
	for _, evt := range events {
		rows = append(rows, toCells(ledger.Row(evt)))
	}
	return rows
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
