package pipeline

import (
	"fmt"

	"docminer/pkg/types"
)

// Batch is a contiguous group of documents processed together. Index is the
// zero-based position of the batch within the run.
type Batch struct {
	Index     int
	Documents []types.Document
}

// Split partitions docs into batches of at most size documents each.
// Batches preserve input order: concatenating them reproduces docs exactly,
// and every batch except possibly the last is full.
func Split(docs []types.Document, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size %d, must be positive", ErrInvalidConfig, size)
	}

	batches := make([]Batch, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, Batch{
			Index:     len(batches),
			Documents: docs[start:end],
		})
	}

	return batches, nil
}
