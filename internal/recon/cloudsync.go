package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"phototier/internal/photo"
	"phototier/internal/store"
)

// SyncOptions is the immutable per-pass configuration for Cloud-Sync.
type SyncOptions struct {
	Policy TieringPolicy

	// MigrateAll sweeps every record whose payload lives only in the
	// relational tier, instead of only those flagged sync-required. Used
	// for the one-time migration to the blob tier.
	MigrateAll bool
}

// CloudSync uploads flagged payloads to the blob tier and records the
// outcome. Upload and metadata update are two separate steps, and the
// payload is cleared (under PolicyTierOff) only by a third, explicit
// update after the metadata write succeeded. Any failure along the way
// leaves the record with both copies rather than neither.
func (e *Engine) CloudSync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	var (
		recs []photo.Record
		err  error
	)
	if opts.MigrateAll {
		recs, err = e.opts.Records.FindLocalOnly(ctx)
	} else {
		recs, err = e.opts.Records.FindSyncRequired(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch sync candidates: %w", err)
	}

	res := &SyncResult{Candidates: len(recs)}
	var mu sync.Mutex

	res.Cancelled = e.runItems(ctx, len(recs), func(idx int) {
		rec := recs[idx]
		uploaded, cleared, itemErr := e.syncOne(ctx, &rec, opts)

		mu.Lock()
		defer mu.Unlock()
		if uploaded {
			res.Uploaded++
		}
		if cleared {
			res.Cleared++
		}
		if itemErr != nil {
			res.Failed++
			res.Errors = append(res.Errors, *itemErr)
		}
	})

	sortItemErrors(res.Errors)

	slog.Info("cloud sync pass finished",
		"candidates", res.Candidates,
		"uploaded", res.Uploaded,
		"cleared", res.Cleared,
		"failed", res.Failed,
		"cancelled", res.Cancelled,
	)
	return res, nil
}

func (e *Engine) syncOne(ctx context.Context, rec *photo.Record, opts SyncOptions) (uploaded, cleared bool, itemErr *ItemError) {
	action := SyncActionFor(rec, opts.Policy)
	if action == SyncNone {
		if Classify(rec) == StateInconsistent {
			// Flagged for sync with nothing to upload anywhere.
			return false, false, &ItemError{Code: rec.Code, Err: &IntegrityError{Code: rec.Code}}
		}
		return false, false, nil
	}

	key := fmt.Sprintf("photos/%s", rec.Code)
	ref, err := e.opts.Blobs.Put(ctx, key, rec.Payload)
	if err != nil {
		return false, false, &ItemError{Code: rec.Code, Err: fmt.Errorf("upload: %w", err)}
	}

	now := time.Now().UTC()
	rec.CloudRef = &ref
	rec.CloudUploadedDate = &now
	rec.CloudSyncRequired = false
	if err := e.opts.Records.Upsert(ctx, rec); err != nil {
		// Upload succeeded but the store does not know yet. The payload is
		// untouched and the sync flag still set, so the next pass re-puts
		// the same key and converges.
		return false, false, &ItemError{Code: rec.Code, Err: fmt.Errorf("record upload: %w", err)}
	}
	uploaded = true
	slog.Debug("uploaded to blob tier", "code", rec.Code, "ref", ref)

	if action == SyncUploadAndClear {
		if _, err := e.opts.Records.ClearField(ctx, rec.Code, store.FieldPayload); err != nil {
			// Still mirrored; the clear can be retried by a later
			// migration sweep.
			return uploaded, false, &ItemError{Code: rec.Code, Err: fmt.Errorf("clear payload: %w", err)}
		}
		cleared = true
	}

	return uploaded, cleared, nil
}
