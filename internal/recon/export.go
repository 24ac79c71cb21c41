package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"phototier/internal/photo"
)

// ExportOptions is the immutable per-pass configuration for Export.
type ExportOptions struct {
	Folder string

	// FilenameTemplate receives the record code via one %s verb.
	FilenameTemplate string
}

// Export writes every export-due record to the export folder and stamps
// ExportedDate once the write is confirmed. Export never changes which
// tier holds the payload.
func (e *Engine) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	recs, err := e.opts.Records.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	var due []photo.Record
	for _, rec := range recs {
		if NeedsExport(&rec) {
			due = append(due, rec)
		}
	}

	res := &ExportResult{Due: len(due)}
	var mu sync.Mutex

	res.Cancelled = e.runItems(ctx, len(due), func(idx int) {
		rec := due[idx]
		itemErr := e.exportOne(ctx, &rec, opts)

		mu.Lock()
		defer mu.Unlock()
		if itemErr != nil {
			res.Failed++
			res.Errors = append(res.Errors, *itemErr)
		} else {
			res.Exported++
		}
	})

	sortItemErrors(res.Errors)

	slog.Info("export pass finished",
		"folder", opts.Folder,
		"due", res.Due,
		"exported", res.Exported,
		"failed", res.Failed,
		"cancelled", res.Cancelled,
	)
	return res, nil
}

func (e *Engine) exportOne(ctx context.Context, rec *photo.Record, opts ExportOptions) *ItemError {
	data, err := e.resolvePayload(ctx, rec)
	if err != nil {
		return &ItemError{Code: rec.Code, Err: err}
	}

	fileName := fmt.Sprintf(opts.FilenameTemplate, rec.Code)
	if err := e.opts.Files.WriteExportFile(opts.Folder, fileName, data); err != nil {
		return &ItemError{Code: rec.Code, Err: err}
	}

	// Stamp only after the write is confirmed; a failure here leaves the
	// record due again next pass, which just rewrites the same bytes.
	// Only exported_date is touched: the row read at pass start may be
	// stale by now, and a full upsert would revert a concurrent
	// cloud-sync's fields.
	if err := e.opts.Records.MarkExported(ctx, rec.Code, time.Now().UTC()); err != nil {
		return &ItemError{Code: rec.Code, Err: err}
	}

	slog.Debug("exported", "code", rec.Code, "file", fileName)
	return nil
}

// resolvePayload prefers the relational copy and falls back to the blob
// tier. A record with neither is the inconsistent state, reported as an
// integrity error and never papered over.
func (e *Engine) resolvePayload(ctx context.Context, rec *photo.Record) ([]byte, error) {
	if rec.HasPayload() {
		return rec.Payload, nil
	}
	if rec.HasCloudRef() {
		data, err := e.opts.Blobs.Get(ctx, *rec.CloudRef)
		if err != nil {
			return nil, fmt.Errorf("fetch %s from blob tier: %w", rec.Code, err)
		}
		return data, nil
	}
	return nil, &IntegrityError{Code: rec.Code}
}
