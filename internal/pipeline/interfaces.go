package pipeline

import (
	"context"
	"fmt"
	"time"

	"docminer/pkg/types"
)

// Invoker performs one call to the external inference service for a single
// document and returns the raw payload. Implementations must be safe to call
// concurrently for distinct documents.
type Invoker interface {
	Invoke(ctx context.Context, doc types.Document) ([]byte, error)
}

// Transformer maps a raw inference payload into a domain record. It returns
// a MalformedResponseError when the payload does not parse into the expected
// shape.
type Transformer interface {
	Transform(doc types.Document, payload []byte) (*types.Record, error)
}

// Sink persists one record per document as soon as it is ready, and keeps a
// consolidated manifest of every record written so far. Write failures are
// isolated to their document.
type Sink interface {
	Write(record *types.Record) error
	FlushManifest(records map[string]*types.Record) error
}

// Config holds the explicit knobs of a pipeline run. There are no hidden
// defaults: the caller decides every value.
type Config struct {
	BatchSize   int           // documents per batch, > 0
	Workers     int           // concurrent documents within a batch, >= 1
	RateWindow  time.Duration // minimum gap between starts of consecutive batches, >= 0
	ItemTimeout time.Duration // per-document deadline; 0 disables
}

func (c Config) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d, must be positive", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d, must be at least 1", ErrInvalidConfig, c.Workers)
	}
	if c.RateWindow < 0 {
		return fmt.Errorf("%w: rate window %s, must not be negative", ErrInvalidConfig, c.RateWindow)
	}
	if c.ItemTimeout < 0 {
		return fmt.Errorf("%w: item timeout %s, must not be negative", ErrInvalidConfig, c.ItemTimeout)
	}
	return nil
}

// Outcome is the terminal result for one document
type Outcome struct {
	Document types.Document
	Record   *types.Record // nil when Err is set
	Stage    Stage         // stage that failed, empty on success
	Err      error
}

// Failure describes one failed document in a finished run
type Failure struct {
	DocumentID string
	Stage      Stage
	Transient  bool
	Err        string
}

// Result aggregates a finished run: every enumerated document lands either
// in Succeeded or in Failed, never both.
type Result struct {
	Succeeded map[string]*types.Record
	Failed    []Failure
}

// FailedIDs returns the IDs of all failed documents, in sorted order
func (r *Result) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.DocumentID
	}
	return ids
}
