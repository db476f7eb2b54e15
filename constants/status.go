package constants

// AnalysisStatus is the canonical status of a single pay-stub analysis.
type AnalysisStatus string

// Stable values (stored in the analysis cache and returned to pollers).
const (
	StatusQueued        AnalysisStatus = "queued"
	StatusOCRInProgress AnalysisStatus = "ocr_in_progress"
	StatusNormalized    AnalysisStatus = "normalized"
	StatusScored        AnalysisStatus = "scored"
	StatusCompleted     AnalysisStatus = "completed" // terminal
	StatusFailed        AnalysisStatus = "failed"    // terminal
)

var statusOrder = map[AnalysisStatus]int{
	StatusQueued:        0,
	StatusOCRInProgress: 1,
	StatusNormalized:    2,
	StatusScored:        3,
	StatusCompleted:     4,
	StatusFailed:        4,
}

// Valid reports whether s is one of the known statuses.
func (s AnalysisStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the monotonic state machine
// queued -> ocr_in_progress -> normalized -> scored -> completed | failed.
// Any non-terminal state may fail; completed is only reachable from scored.
func (s AnalysisStatus) CanTransitionTo(next AnalysisStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	if next == StatusCompleted {
		return s == StatusScored
	}
	return statusOrder[next] == statusOrder[s]+1
}
