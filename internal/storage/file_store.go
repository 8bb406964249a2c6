package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rexa/newscrawler/internal/news"
)

// FileStore keeps records in a JSON file, pruning those older than the
// retention window on load.
type FileStore struct {
	filePath  string
	retention time.Duration
	records   []Record
	mu        sync.RWMutex
	logger    *slog.Logger
	now       func() time.Time
}

func NewFileStore(filePath string, retention time.Duration, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		filePath:  filePath,
		retention: retention,
		logger:    logger.With("component", "storage", "backend", "file"),
		now:       time.Now,
	}
}

// Load reads the existing file. A missing or empty file is an empty store.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}

	cutoff := fs.now().Add(-fs.retention)
	fs.records = fs.records[:0]
	for _, r := range records {
		if fs.retention <= 0 || !r.Timestamp.Before(cutoff) {
			fs.records = append(fs.records, r)
		}
	}
	return nil
}

// Save writes the store atomically via a temp file.
func (fs *FileStore) Save() error {
	fs.mu.RLock()
	data, err := json.MarshalIndent(fs.records, "", "  ")
	fs.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (fs *FileStore) Append(_ context.Context, item news.Item) error {
	fs.mu.Lock()
	fs.records = append(fs.records, NewRecord(item, fs.now()))
	fs.mu.Unlock()
	return fs.Save()
}

func (fs *FileStore) RecentURLs(_ context.Context, window time.Duration) (map[string]struct{}, error) {
	return fs.recent(window, func(r Record) string { return r.URL }), nil
}

func (fs *FileStore) RecentTitles(_ context.Context, window time.Duration) (map[string]struct{}, error) {
	return fs.recent(window, func(r Record) string { return news.NormalizeTitle(r.Title) }), nil
}

func (fs *FileStore) recent(window time.Duration, key func(Record) string) map[string]struct{} {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	cutoff := fs.now().Add(-window)
	out := make(map[string]struct{})
	for _, r := range fs.records {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		if k := key(r); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// Len returns the number of stored records.
func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.records)
}

func (fs *FileStore) Close() error { return nil }
