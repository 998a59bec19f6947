// Package store persists issues. Every implementation applies updates as a
// compare-and-swap on the issue version so a status change and its history
// entry land together or not at all.
package store

import (
	"context"

	"citycare-be/apperrors"
	"citycare-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueFilter is a conjunction of optional constraints. Nil fields are
// unconstrained.
type IssueFilter struct {
	Status     *models.IssueStatus
	Category   *models.IssueCategory
	AssignedTo *primitive.ObjectID
	ReportedBy *primitive.ObjectID
}

// IssueMutation is a field-level change applied in a single atomic update.
// Setting Status requires AppendEvent with the same status, and vice versa.
type IssueMutation struct {
	Status      *models.IssueStatus
	AppendEvent *models.StatusChangeEvent
	AssignedTo  *primitive.ObjectID
}

// Validate enforces the audit trail contract on a mutation.
func (m IssueMutation) Validate() error {
	if m.Status == nil && m.AppendEvent == nil && m.AssignedTo == nil {
		return apperrors.NewValidationError("", "empty issue mutation")
	}
	if (m.Status == nil) != (m.AppendEvent == nil) {
		return apperrors.NewValidationError("statusHistory", "status changes must append exactly one history entry")
	}
	if m.Status != nil {
		if !m.Status.IsValid() {
			return apperrors.NewValidationError("status", "Invalid status value")
		}
		if m.AppendEvent.Status != *m.Status {
			return apperrors.NewValidationError("statusHistory", "history entry does not match the new status")
		}
	}
	return nil
}

// IssueStore is the durable record of issues.
type IssueStore interface {
	// Create persists a new issue, assigning its id, version and timestamps.
	Create(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	// List returns matching issues, newest created first.
	List(ctx context.Context, filter IssueFilter) ([]models.Issue, error)
	// Update applies m only if the stored version equals expectedVersion.
	// A mismatch returns a Conflict error and writes nothing.
	Update(ctx context.Context, id primitive.ObjectID, expectedVersion int64, m IssueMutation) (*models.Issue, error)
	// CountByStatus counts issues by their current status.
	CountByStatus(ctx context.Context) (map[models.IssueStatus]int64, error)
}

func errIssueNotFound() error {
	return apperrors.NewNotFoundError("Issue not found")
}

func errStaleVersion() error {
	return apperrors.NewConflictError("Issue was modified concurrently")
}
