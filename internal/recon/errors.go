package recon

import (
	"errors"
	"fmt"
)

// ErrFolderMissing is the fatal pass-level condition for Import: the
// drop folder does not exist or is not a directory.
var ErrFolderMissing = errors.New("folder does not exist")

// ErrEmptyPayload rejects a zero-byte candidate file. Persisting it
// would create a record no tier holds, so the file is reported as a
// per-item failure and left in the drop folder instead.
var ErrEmptyPayload = errors.New("file is empty")

// IntegrityError marks a record observed with no payload in any tier.
// Reported as its own class and never auto-healed.
type IntegrityError struct {
	Code string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("record %s holds no payload in any tier", e.Code)
}
