// -----------------------------------------------------------------------
// Journal Entry - Local forensic record of one claimed assignment
// -----------------------------------------------------------------------

package models

import "time"

// JournalEntry records an assignment this worker touched and how it
// ended. Entries are written locally and never sent anywhere; they exist
// so an operator can reconstruct what a dead worker was doing.
type JournalEntry struct {
	AssignmentID string    `badgerhold:"key"`
	JobID        string    `badgerhold:"index"`
	Type         JobType   `json:"type"`
	Status       string    `badgerhold:"index"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ClaimedAt    time.Time `json:"claimed_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the entry reached a final state.
func (e *JournalEntry) Terminal() bool {
	return e.Status != "claimed"
}
