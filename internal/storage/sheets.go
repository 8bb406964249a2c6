package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rexa/newscrawler/internal/news"
)

const DefaultSheetName = "Sheet1"

// SheetsStore appends rows to a Google Sheets worksheet and reads it back
// for history lookbacks.
type SheetsStore struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheet         string
	logger        *slog.Logger
	now           func() time.Time
}

// NewSheets authenticates with a service-account JSON document.
func NewSheets(ctx context.Context, spreadsheetID, sheet, credentialsJSON string, logger *slog.Logger) (*SheetsStore, error) {
	if credentialsJSON == "" {
		return nil, errors.New("google sheets credentials are empty")
	}
	return NewSheetsWithOptions(ctx, spreadsheetID, sheet, logger,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewSheetsWithOptions builds the store from raw client options and makes
// sure the header row exists.
func NewSheetsWithOptions(ctx context.Context, spreadsheetID, sheet string, logger *slog.Logger, opts ...option.ClientOption) (*SheetsStore, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is empty")
	}
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}

	s := &SheetsStore{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.With("component", "storage", "backend", "sheets"),
		now:           time.Now,
	}
	if err := s.ensureHeader(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SheetsStore) columnsRange() string {
	return fmt.Sprintf("%s!A:L", s.sheet)
}

func (s *SheetsStore) ensureHeader(ctx context.Context) error {
	resp, err := s.values.Get(s.spreadsheetID, s.sheet+"!A1:L1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 && fmt.Sprint(resp.Values[0][0]) == Columns[0] {
		return nil
	}

	header := &sheets.ValueRange{Values: [][]interface{}{toCells(Columns)}}
	if _, err := s.values.Update(s.spreadsheetID, s.sheet+"!A1:L1", header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	s.logger.Info("sheet header created")
	return nil
}

func (s *SheetsStore) Append(ctx context.Context, item news.Item) error {
	r := NewRecord(item, s.now())
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(r.Row())}}

	_, err := s.values.Append(s.spreadsheetID, s.columnsRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (s *SheetsStore) RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	urls, _ := collectRecent(rows, s.now().Add(-window), s.now())
	return urls, nil
}

func (s *SheetsStore) RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	_, titles := collectRecent(rows, s.now(), s.now().Add(-window))
	return titles, nil
}

func (s *SheetsStore) rows(ctx context.Context) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.columnsRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SheetsStore) Close() error { return nil }

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
