package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

// JournalStorage implements the Journal interface over badgerhold.
type JournalStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

var _ interfaces.Journal = (*JournalStorage)(nil)

// NewJournalStorage creates a journal backed by an open database.
func NewJournalStorage(db *BadgerDB, logger arbor.ILogger) *JournalStorage {
	return &JournalStorage{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// RecordClaim upserts a fresh entry for a claimed assignment. Upsert
// rather than insert: a worker restarted mid-lease can legitimately
// re-claim an assignment it already journaled.
func (s *JournalStorage) RecordClaim(assignment *models.JobAssignment) error {
	if assignment.AssignmentID == "" {
		return fmt.Errorf("assignment ID is required")
	}
	entry := &models.JournalEntry{
		AssignmentID: assignment.AssignmentID,
		JobID:        assignment.JobID,
		Type:         assignment.Type,
		Status:       "claimed",
		ClaimedAt:    s.now(),
	}
	if err := s.db.Store().Upsert(entry.AssignmentID, entry); err != nil {
		return fmt.Errorf("failed to record claim: %w", err)
	}
	return nil
}

// RecordResult moves an entry to its terminal state. A result for an
// assignment never journaled (claim write failed earlier) still gets an
// entry so the terminal state is not lost.
func (s *JournalStorage) RecordResult(assignmentID, status, errorKind, errorMessage string) error {
	if assignmentID == "" {
		return fmt.Errorf("assignment ID is required")
	}

	var entry models.JournalEntry
	err := s.db.Store().Get(assignmentID, &entry)
	if err == badgerhold.ErrNotFound {
		entry = models.JournalEntry{AssignmentID: assignmentID, ClaimedAt: s.now()}
	} else if err != nil {
		return fmt.Errorf("failed to load journal entry: %w", err)
	}

	entry.Status = status
	entry.ErrorKind = errorKind
	entry.ErrorMessage = errorMessage
	entry.FinishedAt = s.now()

	if err := s.db.Store().Upsert(assignmentID, &entry); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// FindByStatus returns entries in a given state, newest claim first.
func (s *JournalStorage) FindByStatus(status string) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	query := badgerhold.Where("Status").Eq(status).SortBy("ClaimedAt").Reverse()
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return entries, nil
}

// Close closes the backing database.
func (s *JournalStorage) Close() error {
	return s.db.Close()
}
