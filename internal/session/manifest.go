package session

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"docminer/pkg/types"
)

const manifestFile = "manifest.json"

// NewManifest creates a new empty manifest for an extraction session
func NewManifest(formRef types.FormRef, corpus string) *types.Manifest {
	now := time.Now()
	return &types.Manifest{
		Version:   1,
		Form:      formRef,
		Corpus:    corpus,
		Records:   map[string]*types.Record{},
		Runs:      []types.RunLog{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LoadManifest loads a manifest from a session directory. A missing manifest
// is not an error: it returns nil so callers can start a fresh session.
func LoadManifest(dir string) (*types.Manifest, error) {
	path := filepath.Join(dir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var manifest types.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if manifest.Records == nil {
		manifest.Records = map[string]*types.Record{}
	}

	return &manifest, nil
}

// SaveManifest saves a manifest to a session directory. The write goes
// through a temp file and rename so a crash mid-write cannot corrupt the
// manifest a resumed run depends on.
func SaveManifest(dir string, manifest *types.Manifest) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	manifest.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	path := filepath.Join(dir, manifestFile)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming manifest: %w", err)
	}

	return nil
}

// StartRun appends a running entry to the manifest's run log and returns its
// invocation ID
func StartRun(manifest *types.Manifest) string {
	id := ulid.MustNew(ulid.Now(), rand.Reader).String()
	manifest.Runs = append(manifest.Runs, types.RunLog{
		InvocationID: id,
		StartedAt:    time.Now(),
		Status:       "running",
	})
	return id
}

// CompleteRun closes the run log entry for invocationID
func CompleteRun(manifest *types.Manifest, invocationID, status string, succeeded, failed int, failures []types.FailureLog) {
	for i := range manifest.Runs {
		if manifest.Runs[i].InvocationID != invocationID {
			continue
		}
		manifest.Runs[i].CompletedAt = time.Now()
		manifest.Runs[i].Status = status
		manifest.Runs[i].Succeeded = succeeded
		manifest.Runs[i].Failed = failed
		manifest.Runs[i].Failures = failures
		return
	}
}
