package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"docminer/pkg/types"
)

// Sink persists extraction results into a session directory: one
// record_<id>.json per document, written the moment the record is ready,
// plus the shared manifest. Record computation is parallel but every
// manifest mutation goes through the sink's mutex, so the manifest on disk
// is always a consistent snapshot and safe to inspect mid-run.
type Sink struct {
	dir string

	mu       sync.Mutex
	manifest *types.Manifest
}

// NewSink creates a sink writing into dir, updating manifest as records land
func NewSink(dir string, manifest *types.Manifest) *Sink {
	return &Sink{dir: dir, manifest: manifest}
}

// RecordPath returns the per-document record file path for a document ID.
// The name depends only on the ID, so re-running a corpus overwrites the
// same files instead of accumulating duplicates.
func (s *Sink) RecordPath(documentID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("record_%s.json", documentID))
}

// Write persists one document's record and folds it into the manifest
func (s *Sink) Write(record *types.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	if err := os.WriteFile(s.RecordPath(record.DocumentID), data, 0644); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.manifest.Records[record.DocumentID]
	s.manifest.Records[record.DocumentID] = record
	if err := SaveManifest(s.dir, s.manifest); err != nil {
		// A failed write must not leak into the manifest: restore the
		// prior state so a later flush cannot persist this record.
		if existed {
			s.manifest.Records[record.DocumentID] = prev
		} else {
			delete(s.manifest.Records, record.DocumentID)
		}
		return err
	}
	return nil
}

// FlushManifest folds records into the manifest and rewrites it. Existing
// entries from earlier runs are kept; a flush only ever adds or replaces.
func (s *Sink) FlushManifest(records map[string]*types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range records {
		s.manifest.Records[id] = record
	}
	return SaveManifest(s.dir, s.manifest)
}

// Manifest returns the manifest the sink maintains. Callers must not mutate
// it while a run is in flight.
func (s *Sink) Manifest() *types.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}
