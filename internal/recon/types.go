package recon

import "sort"

// State is where a record's payload currently lives, as a closed set.
type State int

const (
	// StateLocalOnly: relational payload present, no blob copy.
	StateLocalOnly State = iota
	// StateCloudOnly: blob copy present, relational payload cleared.
	StateCloudOnly
	// StateMirrored: both tiers hold the payload.
	StateMirrored
	// StateInconsistent: neither tier holds it. Never a valid post-action
	// state; surfaced as an integrity error wherever observed.
	StateInconsistent
)

func (s State) String() string {
	switch s {
	case StateLocalOnly:
		return "local_only"
	case StateCloudOnly:
		return "cloud_only"
	case StateMirrored:
		return "mirrored"
	case StateInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// TieringPolicy controls what Cloud-Sync does with the relational copy
// after a successful upload.
type TieringPolicy int

const (
	// PolicyKeepLocal (default): upload and keep the relational payload.
	PolicyKeepLocal TieringPolicy = iota
	// PolicyTierOff: upload, then clear the relational payload.
	PolicyTierOff
)

// ParseTieringPolicy maps the config string to the engine enum. Unknown
// values fall back to keep_local, the conservative choice.
func ParseTieringPolicy(s string) TieringPolicy {
	if s == "tier_off" {
		return PolicyTierOff
	}
	return PolicyKeepLocal
}

// SyncAction is the state machine's verdict for one Cloud-Sync candidate.
type SyncAction int

const (
	SyncNone SyncAction = iota
	SyncUpload
	SyncUploadAndClear
)

// ItemError is one isolated per-item failure inside a pass.
type ItemError struct {
	Code string
	Path string
	Err  error
}

// sortItemErrors orders errors by code then path so pass results are
// deterministic regardless of worker completion order.
func sortItemErrors(errs []ItemError) {
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Code != errs[j].Code {
			return errs[i].Code < errs[j].Code
		}
		return errs[i].Path < errs[j].Path
	})
}

// ImportResult aggregates one Import pass.
type ImportResult struct {
	Found             int
	Imported          int
	SkippedDuplicates int
	Failed            int
	Errors            []ItemError
	Cancelled         bool
}

// ExportResult aggregates one Export pass.
type ExportResult struct {
	Due       int
	Exported  int
	Failed    int
	Errors    []ItemError
	Cancelled bool
}

// SyncResult aggregates one Cloud-Sync pass.
type SyncResult struct {
	Candidates int
	Uploaded   int
	Cleared    int
	Failed     int
	Errors     []ItemError
	Cancelled  bool
}
