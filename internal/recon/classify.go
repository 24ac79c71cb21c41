package recon

import "phototier/internal/photo"

// Classify reports which tiers currently hold the record's payload.
// Pure: only the presence flags matter, never timestamps.
func Classify(rec *photo.Record) State {
	switch {
	case rec.HasPayload() && rec.HasCloudRef():
		return StateMirrored
	case rec.HasPayload():
		return StateLocalOnly
	case rec.HasCloudRef():
		return StateCloudOnly
	default:
		return StateInconsistent
	}
}

// NeedsExport is the export-due predicate: never exported, or modified
// after the last export. Computed from the timestamps at read time, never
// stored. A tie (modified exactly at the export instant) counts as
// current, not due.
func NeedsExport(rec *photo.Record) bool {
	if rec.ExportedDate == nil {
		return true
	}
	if rec.ModifiedDate != nil && rec.ModifiedDate.After(*rec.ExportedDate) {
		return true
	}
	if rec.PhotoModifiedDate != nil && rec.PhotoModifiedDate.After(*rec.ExportedDate) {
		return true
	}
	return false
}

// SyncActionFor decides what Cloud-Sync must do with one candidate.
// Records without a relational payload have nothing to upload: if the
// blob tier already holds them there is nothing to do, otherwise the
// record is in the inconsistent state and the caller must surface that.
func SyncActionFor(rec *photo.Record, policy TieringPolicy) SyncAction {
	if !rec.HasPayload() {
		return SyncNone
	}
	if policy == PolicyTierOff {
		return SyncUploadAndClear
	}
	return SyncUpload
}
