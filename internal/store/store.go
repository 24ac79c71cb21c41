package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phototier/internal/photo"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

// ClearableField enumerates the record fields the gateway may nullify.
// A closed set: clearing anything else is not a supported operation.
type ClearableField int

const (
	// FieldPayload clears the relational tier's copy of the image bytes.
	FieldPayload ClearableField = iota
	// FieldCloudRef clears the blob tier locator.
	FieldCloudRef
)

func (f ClearableField) String() string {
	switch f {
	case FieldPayload:
		return "payload"
	case FieldCloudRef:
		return "cloud_ref"
	default:
		return fmt.Sprintf("ClearableField(%d)", int(f))
	}
}

// RecordStore is the capability contract over the relational tier.
// Upsert must be atomic per code: concurrent upserts on the same code
// converge to exactly one row holding one caller's values.
type RecordStore interface {
	Upsert(ctx context.Context, rec *photo.Record) error
	// MarkExported stamps only the exported_date column, leaving every
	// other field to whoever wrote it last.
	MarkExported(ctx context.Context, code string, at time.Time) error
	FindAll(ctx context.Context) ([]photo.Record, error)
	FindByCode(ctx context.Context, code string) (*photo.Record, error)
	FindByHash(ctx context.Context, hash string) (*photo.Record, error)
	FindSyncRequired(ctx context.Context) ([]photo.Record, error)
	FindLocalOnly(ctx context.Context) ([]photo.Record, error)
	Count(ctx context.Context) (int64, error)
	ClearField(ctx context.Context, code string, field ClearableField) (int64, error)
}
