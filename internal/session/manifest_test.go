package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"docminer/pkg/types"
)

func testFormRef() types.FormRef {
	return types.FormRef{Title: "Invoice Fields", Path: "forms/invoice.json", Hash: "a1b2c3d4e5f60718"}
}

func TestManifestRoundtrip(t *testing.T) {
	dir := t.TempDir()

	m := NewManifest(testFormRef(), "corpus/invoices")
	m.Records["inv-001"] = &types.Record{
		DocumentID: "inv-001",
		Source:     "inv-001.txt",
		Entries: []types.Entry{{Fields: []types.FieldValue{
			{ID: "total", Value: 41.5, Confidence: 0.9, Evidence: []types.Evidence{{Text: "Total: $41.50"}}},
		}}},
		ExtractedAt: time.Now().Truncate(time.Second),
	}

	if err := SaveManifest(dir, m); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}

	loaded, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadManifest returned nil for existing manifest")
	}

	if loaded.Version != 1 {
		t.Errorf("version = %d, want 1", loaded.Version)
	}
	if diff := cmp.Diff(m.Form, loaded.Form); diff != "" {
		t.Errorf("form ref (-want +got):\n%s", diff)
	}
	if loaded.Corpus != "corpus/invoices" {
		t.Errorf("corpus = %q", loaded.Corpus)
	}
	rec, ok := loaded.Records["inv-001"]
	if !ok {
		t.Fatal("record inv-001 missing after roundtrip")
	}
	if len(rec.Entries) != 1 || len(rec.Entries[0].Fields) != 1 {
		t.Fatalf("record shape changed: %+v", rec)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest for empty directory, got %+v", m)
	}
}

func TestLoadManifestCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(dir); err == nil {
		t.Fatal("expected error for corrupt manifest")
	}
}

func TestSaveManifestLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	if err := SaveManifest(dir, NewManifest(testFormRef(), "c")); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, manifestFile+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestStartAndCompleteRun(t *testing.T) {
	m := NewManifest(testFormRef(), "c")

	id1 := StartRun(m)
	id2 := StartRun(m)
	if id1 == id2 {
		t.Fatal("invocation IDs not unique")
	}
	if len(m.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(m.Runs))
	}
	if m.Runs[0].Status != "running" {
		t.Errorf("status = %q, want running", m.Runs[0].Status)
	}

	failures := []types.FailureLog{{DocumentID: "inv-003", Stage: "invoke", Transient: true, Error: "timeout"}}
	CompleteRun(m, id1, "completed", 4, 1, failures)

	run := m.Runs[0]
	if run.Status != "completed" {
		t.Errorf("status = %q, want completed", run.Status)
	}
	if run.Succeeded != 4 || run.Failed != 1 {
		t.Errorf("counts = %d/%d, want 4/1", run.Succeeded, run.Failed)
	}
	if run.CompletedAt.IsZero() {
		t.Error("completed run has zero CompletedAt")
	}
	if diff := cmp.Diff(failures, run.Failures); diff != "" {
		t.Errorf("failures (-want +got):\n%s", diff)
	}

	// The second run is untouched.
	if m.Runs[1].Status != "running" {
		t.Errorf("second run status = %q, want running", m.Runs[1].Status)
	}
}

func TestCompleteRunUnknownID(t *testing.T) {
	m := NewManifest(testFormRef(), "c")
	StartRun(m)
	CompleteRun(m, "no-such-id", "completed", 0, 0, nil)
	if m.Runs[0].Status != "running" {
		t.Errorf("status changed for unmatched invocation ID: %q", m.Runs[0].Status)
	}
}
