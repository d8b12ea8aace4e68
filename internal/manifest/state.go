package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// State is the outcome of verifying a destination.
type State int

const (
	StateMissing State = iota
	StateValid
	StateCorrupt
	StateAmbiguous
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateValid:
		return "valid"
	case StateCorrupt:
		return "corrupt"
	case StateAmbiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Corruption reasons.
const (
	ReasonChecksumMismatch = "checksum mismatch"
	ReasonCountMismatch    = "count mismatch"
	ReasonKeyMismatch      = "key mismatch"
	ReasonUnreadable       = "unreadable manifest"
)

var (
	// ErrCorrupt is wrapped by errors for destinations whose manifest failed a check.
	ErrCorrupt = errors.New("manifest corrupt")
	// ErrAmbiguous is wrapped by errors for destinations holding several manifest candidates.
	ErrAmbiguous = errors.New("more than one manifest candidate")
)

// Verification is the result of Store.Verify.
type Verification struct {
	State    State
	Dir      string
	Manifest *Manifest // set when State is StateValid
	Path     string    // the single candidate, for valid and corrupt states
	Reason   string    // corruption reason
	// Candidates lists every manifest candidate found; populated for ambiguous stores.
	Candidates []string
	// FileCount is the number of content files observed in the destination.
	FileCount int
}

// Err returns a *StateError for terminal states and nil otherwise.
func (v Verification) Err() error {
	switch v.State {
	case StateCorrupt, StateAmbiguous:
		return &StateError{
			State:      v.State,
			Dir:        v.Dir,
			Path:       v.Path,
			Reason:     v.Reason,
			Candidates: append([]string(nil), v.Candidates...),
		}
	default:
		return nil
	}
}

// StateError describes a destination that cannot be used without manual
// intervention.
type StateError struct {
	State      State
	Dir        string
	Path       string
	Reason     string
	Candidates []string
}

func (e *StateError) Error() string {
	switch e.State {
	case StateAmbiguous:
		return fmt.Sprintf("destination %s holds %d manifest candidates (%s); keep the authoritative one and remove the others",
			e.Dir, len(e.Candidates), strings.Join(e.Candidates, ", "))
	case StateCorrupt:
		return fmt.Sprintf("manifest %s failed verification: %s; inspect or delete it to trigger a rebuild", e.Path, e.Reason)
	default:
		return fmt.Sprintf("destination %s in state %s", e.Dir, e.State)
	}
}

func (e *StateError) Unwrap() error {
	switch e.State {
	case StateAmbiguous:
		return ErrAmbiguous
	case StateCorrupt:
		return ErrCorrupt
	default:
		return nil
	}
}
