package services

import (
	"context"

	"citycare-be/models"
)

// Stats counts live issues by current status.
type Stats struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
}

// Stats is computed from the store on every call.
func (s *IssueService) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Pending:    counts[models.StatusPending],
		InProgress: counts[models.StatusInProgress],
		Resolved:   counts[models.StatusResolved],
	}, nil
}
