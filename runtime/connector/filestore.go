package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore reads source batches from JSON files in a data directory. Each
// source maps to one file holding a JSON array of records.
type FileStore struct {
	dir string
}

// NewFileStore returns a store backed by JSON files under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// fileNames maps each source to its backing data file.
var fileNames = map[Source]string{
	SourceCRM:       "customers.json",
	SourceSupport:   "support_tickets.json",
	SourceAnalytics: "analytics.json",
}

// Fetch loads and decodes the source's backing file. Missing or corrupt data
// is reported as ErrSourceUnavailable.
func (s *FileStore) Fetch(_ context.Context, source Source) ([]Record, error) {
	name, ok := fileNames[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: corrupt data: %v", ErrSourceUnavailable, source, err)
	}
	return records, nil
}

// StaticStore serves fixed in-memory batches. Used in tests and for seeding.
type StaticStore struct {
	batches map[Source][]Record
}

// NewStaticStore returns a store serving the given batches verbatim.
func NewStaticStore(batches map[Source][]Record) *StaticStore {
	return &StaticStore{batches: batches}
}

// Fetch returns the configured batch for source, or ErrSourceUnavailable when
// none was registered.
func (s *StaticStore) Fetch(_ context.Context, source Source) ([]Record, error) {
	batch, ok := s.batches[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, source)
	}
	return batch, nil
}
