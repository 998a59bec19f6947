package services

import (
	"context"
	"strings"

	"citycare-be/apperrors"
	"citycare-be/models"
	"citycare-be/store"

	"go.uber.org/zap"
)

// Transition sets an issue's status and appends the matching audit entry in
// one atomic write. Any status may follow any other.
//
// A write that loses a version race was not applied, so it is re-read,
// re-authorized and re-tried up to the configured number of attempts.
func (s *IssueService) Transition(ctx context.Context, actor models.Actor, issueID, newStatus, note string) (*models.Issue, error) {
	status, err := models.ParseIssueStatus(newStatus)
	if err != nil {
		return nil, err
	}
	id, err := parseIssueID(issueID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		issue, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		decision := Authorize(actor, issue, ActionTransitionStatus)
		if !decision.Allowed {
			s.logger.Warn("status transition denied",
				zap.String("issue_id", id.Hex()),
				zap.String("actor_id", actor.ID.Hex()),
				zap.String("actor_role", string(actor.Role)),
				zap.String("reason", decision.Reason),
			)
			return nil, apperrors.NewForbiddenError(decision.Reason)
		}

		eventNote := strings.TrimSpace(note)
		if eventNote == "" {
			eventNote = decision.Capacity.DefaultNote()
		}
		event := models.StatusChangeEvent{
			Status:    status,
			ChangedBy: actor.ID,
			ChangedAt: s.clock(),
			Note:      eventNote,
			ActorRole: actor.Role,
		}

		updated, err := s.store.Update(ctx, id, issue.Version, store.IssueMutation{
			Status:      &status,
			AppendEvent: &event,
		})
		if err == nil {
			s.logger.Info("issue status changed",
				zap.String("issue_id", id.Hex()),
				zap.String("from", string(issue.Status)),
				zap.String("to", string(status)),
				zap.String("actor_id", actor.ID.Hex()),
				zap.String("capacity", string(decision.Capacity)),
			)
			return updated, nil
		}
		if !apperrors.IsRetryable(err) {
			s.logger.Error("issue status update failed", zap.String("issue_id", id.Hex()), zap.Error(err))
			return nil, err
		}
		lastErr = err
		s.logger.Debug("issue version conflict", zap.String("issue_id", id.Hex()), zap.Int("attempt", attempt))
	}
	return nil, lastErr
}
