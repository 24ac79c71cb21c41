package photo

import "time"

// Record is one photo as tracked across the three storage tiers. One row
// per record in the relational tier, keyed by Code.
//
// Payload is present iff the relational tier currently holds the image
// bytes; CloudRef is present iff the blob tier holds a copy. A persisted
// record that has completed import must have at least one of the two.
type Record struct {
	// Code is the stable external key. Immutable once assigned.
	Code string `gorm:"primaryKey;size:128" json:"code"`

	// Payload holds the image bytes while the relational tier is a home
	// for them. Cleared (explicitly, never implicitly) when the record is
	// tiered off to cold storage.
	Payload []byte `gorm:"type:bytea" json:"-"`

	// CloudRef is an opaque locator into the blob tier, e.g. "s3://bucket/key".
	CloudRef *string `gorm:"size:512" json:"cloud_ref,omitempty"`

	// FileHash is the content fingerprint of the payload, set whenever the
	// payload is known. Drives duplicate detection on import.
	FileHash *string `gorm:"size:64;index" json:"file_hash,omitempty"`

	FileSize *int64 `json:"file_size,omitempty"`

	// Provenance, set at import time and immutable after.
	SourceFileName *string `gorm:"size:512" json:"source_file_name,omitempty"`
	ImageSource    *string `gorm:"size:128" json:"image_source,omitempty"`

	// CreatedDate is set once at first persistence.
	CreatedDate time.Time `json:"created_date"`

	// ModifiedDate tracks the last metadata or payload change.
	ModifiedDate *time.Time `json:"modified_date,omitempty"`

	// Lifecycle timestamps: last successful completion of each action.
	ImportedDate      *time.Time `json:"imported_date,omitempty"`
	ExportedDate      *time.Time `json:"exported_date,omitempty"`
	CloudUploadedDate *time.Time `json:"cloud_uploaded_date,omitempty"`
	PhotoModifiedDate *time.Time `json:"photo_modified_date,omitempty"`

	// CloudSyncRequired is raised whenever the local copy changes after
	// the last successful upload. Cleared only by a successful upload that
	// also records CloudUploadedDate.
	CloudSyncRequired bool `gorm:"index" json:"cloud_sync_required"`
}

// TableName keeps the relational table name stable regardless of gorm's
// pluralization rules.
func (Record) TableName() string { return "photo_records" }

func (r *Record) HasPayload() bool { return len(r.Payload) > 0 }

func (r *Record) HasCloudRef() bool { return r.CloudRef != nil && *r.CloudRef != "" }
