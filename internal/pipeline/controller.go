package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"docminer/pkg/types"
)

// Controller drives documents through the invoke → transform → persist chain
// batch by batch. Batches run strictly one after another so the rate window
// has a clean boundary; documents within a batch fan out concurrently.
type Controller struct {
	Invoker     Invoker
	Transformer Transformer
	Sink        Sink

	// Progress, when set, is called once per settled document from a single
	// goroutine, in completion order.
	Progress func(oc Outcome, done, total int)
}

// Run processes docs according to cfg and returns the aggregated result.
// Per-document failures never abort the run; only an invalid configuration
// does. On cancellation the in-flight batch drains, no further batches
// start, and the partial result is returned together with ctx.Err().
func (c *Controller) Run(ctx context.Context, docs []types.Document, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	batches, err := Split(docs, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	res := &Result{Succeeded: make(map[string]*types.Record, len(docs))}

	// Single-writer accumulator: workers hand outcomes over a channel and
	// only the collector touches the result maps.
	outcomes := make(chan Outcome)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		done := 0
		for oc := range outcomes {
			done++
			if oc.Err != nil {
				res.Failed = append(res.Failed, Failure{
					DocumentID: oc.Document.ID,
					Stage:      oc.Stage,
					Transient:  IsTransient(oc.Err),
					Err:        oc.Err.Error(),
				})
			} else {
				res.Succeeded[oc.Document.ID] = oc.Record
			}
			if c.Progress != nil {
				c.Progress(oc, done, len(docs))
			}
		}
	}()

	var runErr error
	for _, batch := range batches {
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		start := time.Now()

		workers := cfg.Workers
		if workers > len(batch.Documents) {
			workers = len(batch.Documents)
		}

		// All-settle join: workers never return an error, so one failing
		// document cannot cancel or starve its siblings.
		var g errgroup.Group
		g.SetLimit(workers)
		for _, doc := range batch.Documents {
			g.Go(func() error {
				outcomes <- c.process(ctx, doc, cfg)
				return nil
			})
		}
		_ = g.Wait()

		if batch.Index == len(batches)-1 {
			break
		}
		if err := Sleep(ctx, Wait(time.Since(start), cfg.RateWindow)); err != nil {
			runErr = err
			break
		}
	}

	close(outcomes)
	<-collected

	// Completion order within a batch is racy; sort so the report is
	// deterministic for a given set of outcomes.
	sort.Slice(res.Failed, func(i, j int) bool {
		return res.Failed[i].DocumentID < res.Failed[j].DocumentID
	})

	if c.Sink != nil {
		if err := c.Sink.FlushManifest(res.Succeeded); err != nil && runErr == nil {
			runErr = err
		}
	}

	return res, runErr
}

// process runs the full chain for one document and always settles to an
// outcome; errors are captured, never propagated.
func (c *Controller) process(ctx context.Context, doc types.Document, cfg Config) Outcome {
	if cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ItemTimeout)
		defer cancel()
	}

	payload, err := c.Invoker.Invoke(ctx, doc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &InferenceError{Transient: true, Err: err}
		}
		return Outcome{Document: doc, Stage: StageInvoke, Err: err}
	}

	record, err := c.Transformer.Transform(doc, payload)
	if err != nil {
		return Outcome{Document: doc, Stage: StageTransform, Err: err}
	}

	if c.Sink != nil {
		if err := c.Sink.Write(record); err != nil {
			return Outcome{Document: doc, Stage: StagePersist, Err: &PersistError{DocumentID: doc.ID, Err: err}}
		}
	}

	return Outcome{Document: doc, Record: record}
}
