package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rexa/newscrawler/internal/news"
)

// CSVStore appends rows to a local CSV file with the Columns header.
type CSVStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// NewCSVStore creates the file with a header row when it does not exist.
func NewCSVStore(path string, logger *slog.Logger) (*CSVStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CSVStore{
		path:   path,
		logger: logger.With("component", "storage", "backend", "csv"),
		now:    time.Now,
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(func(w *csv.Writer) error { return w.Write(Columns) }); err != nil {
			return nil, fmt.Errorf("init csv file: %w", err)
		}
		s.logger.Info("csv file created", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("stat csv file: %w", err)
	}
	return s, nil
}

func (s *CSVStore) Append(_ context.Context, item news.Item) error {
	row := NewRecord(item, s.now()).Row()
	if err := s.write(func(w *csv.Writer) error { return w.Write(row) }); err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	return nil
}

func (s *CSVStore) write(fn func(*csv.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := fn(w); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *CSVStore) RecentURLs(_ context.Context, window time.Duration) (map[string]struct{}, error) {
	rows, err := s.readAll()
	if err != nil {
		return nil, err
	}
	urls, _ := collectRecent(rows, s.now().Add(-window), s.now())
	return urls, nil
}

func (s *CSVStore) RecentTitles(_ context.Context, window time.Duration) (map[string]struct{}, error) {
	rows, err := s.readAll()
	if err != nil {
		return nil, err
	}
	_, titles := collectRecent(rows, s.now(), s.now().Add(-window))
	return titles, nil
}

func (s *CSVStore) readAll() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv file: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *CSVStore) Close() error { return nil }
