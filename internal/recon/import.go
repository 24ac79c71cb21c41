package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"phototier/internal/cache"
	"phototier/internal/identity"
	"phototier/internal/photo"
	"phototier/internal/store"
)

// ImportOptions is the immutable per-pass configuration for Import.
type ImportOptions struct {
	Folder        string
	ArchiveFolder string
	Extensions    []string

	// DuplicateCheck skips files whose fingerprint is already stored.
	DuplicateCheck bool

	// AutoArchive moves each source file to ArchiveFolder, strictly after
	// the store write is confirmed. A crash mid-pass therefore leaves
	// unprocessed files re-importable, never lost.
	AutoArchive bool

	ImageSource string
}

type importOutcome int

const (
	importedOutcome importOutcome = iota
	duplicateOutcome
	failedOutcome
)

// Import runs one import pass over the drop folder. A missing or
// unreadable folder is fatal to the pass; everything else is isolated
// per file and reported in the result.
func (e *Engine) Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	if !e.opts.Files.FolderExists(opts.Folder) {
		return nil, fmt.Errorf("%w: %s", ErrFolderMissing, opts.Folder)
	}

	paths, err := e.opts.Files.ListCandidates(opts.Folder, opts.Extensions)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", opts.Folder, err)
	}

	res := &ImportResult{Found: len(paths)}
	var mu sync.Mutex

	res.Cancelled = e.runItems(ctx, len(paths), func(idx int) {
		path := paths[idx]
		outcome, itemErr := e.importOne(ctx, path, opts)

		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case importedOutcome:
			res.Imported++
		case duplicateOutcome:
			res.SkippedDuplicates++
		case failedOutcome:
			res.Failed++
		}
		if itemErr != nil {
			res.Errors = append(res.Errors, *itemErr)
		}
	})

	sortItemErrors(res.Errors)

	slog.Info("import pass finished",
		"folder", opts.Folder,
		"found", res.Found,
		"imported", res.Imported,
		"skipped", res.SkippedDuplicates,
		"failed", res.Failed,
		"cancelled", res.Cancelled,
	)
	return res, nil
}

func (e *Engine) importOne(ctx context.Context, path string, opts ImportOptions) (importOutcome, *ItemError) {
	data, err := e.opts.Files.ReadBytes(path)
	if err != nil {
		return failedOutcome, &ItemError{Path: path, Err: err}
	}

	// A zero-byte file would persist as a record with no payload in any
	// tier and nothing for Cloud-Sync to upload. Refuse it here.
	if len(data) == 0 {
		return failedOutcome, &ItemError{Path: path, Err: ErrEmptyPayload}
	}

	hash := identity.Fingerprint(data)
	code := identity.DeriveCode(path)

	if opts.DuplicateCheck {
		dup, err := e.isDuplicate(ctx, hash)
		if err != nil {
			return failedOutcome, &ItemError{Code: code, Path: path, Err: err}
		}
		if dup {
			slog.Debug("skipping duplicate", "path", path, "hash", hash)
			return duplicateOutcome, nil
		}
	}

	rec, err := e.buildImportRecord(ctx, code, path, data, hash, opts)
	if err != nil {
		return failedOutcome, &ItemError{Code: code, Path: path, Err: err}
	}

	if err := e.opts.Records.Upsert(ctx, rec); err != nil {
		return failedOutcome, &ItemError{Code: code, Path: path, Err: err}
	}

	if e.opts.Index != nil {
		entry := cache.Entry{Code: code, SourceFile: filepath.Base(path), ImportedAt: time.Now().UTC()}
		if err := e.opts.Index.Put(hash, entry); err != nil {
			// The store already has the record; a missed index write only
			// costs a store query next time.
			slog.Warn("fingerprint index write failed", "hash", hash, "err", err)
		}
	}

	if opts.AutoArchive {
		if err := e.opts.Files.MoveToArchive(path, opts.ArchiveFolder); err != nil {
			// Imported fine, archive move did not stick. The file will be
			// skipped as a duplicate on the next pass.
			return importedOutcome, &ItemError{Code: code, Path: path, Err: err}
		}
	}

	return importedOutcome, nil
}

// isDuplicate checks the fingerprint index first, then the record store.
// An index hit is trusted (entries are written only after confirmed
// upserts); an index miss falls through to FindByHash.
func (e *Engine) isDuplicate(ctx context.Context, hash string) (bool, error) {
	if e.opts.Index != nil {
		entry, err := e.opts.Index.Get(hash)
		if err != nil {
			slog.Warn("fingerprint index read failed", "hash", hash, "err", err)
		} else if entry != nil {
			return true, nil
		}
	}

	rec, err := e.opts.Records.FindByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Known to the store but not the local index: backfill.
	if e.opts.Index != nil {
		importedAt := time.Now().UTC()
		if rec.ImportedDate != nil {
			importedAt = *rec.ImportedDate
		}
		sourceFile := ""
		if rec.SourceFileName != nil {
			sourceFile = *rec.SourceFileName
		}
		if err := e.opts.Index.Put(hash, cache.Entry{Code: rec.Code, SourceFile: sourceFile, ImportedAt: importedAt}); err != nil {
			slog.Warn("fingerprint index backfill failed", "hash", hash, "err", err)
		}
	}
	return true, nil
}

// buildImportRecord merges the new payload into an existing row when the
// code is already taken (a re-import with changed content), preserving
// the immutable fields, or starts a fresh record otherwise.
func (e *Engine) buildImportRecord(ctx context.Context, code, path string, data []byte, hash string, opts ImportOptions) (*photo.Record, error) {
	now := time.Now().UTC()
	size := int64(len(data))

	existing, err := e.opts.Records.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		rec := *existing
		rec.Payload = data
		rec.FileHash = &hash
		rec.FileSize = &size
		rec.ModifiedDate = &now
		rec.PhotoModifiedDate = &now
		rec.ImportedDate = &now
		rec.CloudSyncRequired = true
		return &rec, nil
	}

	sourceName := filepath.Base(path)
	rec := &photo.Record{
		Code:              code,
		Payload:           data,
		FileHash:          &hash,
		FileSize:          &size,
		SourceFileName:    &sourceName,
		CreatedDate:       now,
		ModifiedDate:      &now,
		ImportedDate:      &now,
		CloudSyncRequired: true,
	}
	if opts.ImageSource != "" {
		src := opts.ImageSource
		rec.ImageSource = &src
	}
	return rec, nil
}
