package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// VerifyResult aggregates one consistency audit.
type VerifyResult struct {
	Checked      int
	Inconsistent int
	MissingBlobs int
	Errors       []ItemError
}

// Verify audits every record against the tier invariants: no record may
// classify as inconsistent, and every cloud reference must resolve to an
// existing blob. Read-only; violations are reported, never healed.
func (e *Engine) Verify(ctx context.Context) (*VerifyResult, error) {
	recs, err := e.opts.Records.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	res := &VerifyResult{Checked: len(recs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i := range recs {
		rec := &recs[i]
		g.Go(func() error {
			if Classify(rec) == StateInconsistent {
				mu.Lock()
				res.Inconsistent++
				res.Errors = append(res.Errors, ItemError{Code: rec.Code, Err: &IntegrityError{Code: rec.Code}})
				mu.Unlock()
				return nil
			}

			if rec.HasCloudRef() {
				exists, err := e.opts.Blobs.Exists(gctx, *rec.CloudRef)
				if err != nil {
					mu.Lock()
					res.Errors = append(res.Errors, ItemError{Code: rec.Code, Err: fmt.Errorf("check blob: %w", err)})
					mu.Unlock()
					return nil
				}
				if !exists {
					mu.Lock()
					res.MissingBlobs++
					res.Errors = append(res.Errors, ItemError{Code: rec.Code, Err: fmt.Errorf("cloud reference %s points at no blob", *rec.CloudRef)})
					mu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortItemErrors(res.Errors)

	slog.Info("verify pass finished",
		"checked", res.Checked,
		"inconsistent", res.Inconsistent,
		"missing_blobs", res.MissingBlobs,
	)
	return res, nil
}
