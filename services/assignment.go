package services

import (
	"context"
	"errors"
	"strings"

	"citycare-be/apperrors"
	"citycare-be/models"
	"citycare-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Assign binds a volunteer to an issue, replacing any previous assignee.
// Assignment does not touch the status history.
func (s *IssueService) Assign(ctx context.Context, actor models.Actor, issueID, volunteerID string) (*models.Issue, error) {
	id, err := parseIssueID(issueID)
	if err != nil {
		return nil, err
	}

	var volunteer primitive.ObjectID
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		issue, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		decision := Authorize(actor, issue, ActionAssign)
		if !decision.Allowed {
			s.logger.Warn("assignment denied",
				zap.String("issue_id", id.Hex()),
				zap.String("actor_id", actor.ID.Hex()),
				zap.String("actor_role", string(actor.Role)),
			)
			return nil, apperrors.NewForbiddenError(decision.Reason)
		}

		if attempt == 1 {
			if volunteer, err = s.resolveAssignee(ctx, volunteerID); err != nil {
				return nil, err
			}
		}

		updated, err := s.store.Update(ctx, id, issue.Version, store.IssueMutation{AssignedTo: &volunteer})
		if err == nil {
			s.logger.Info("volunteer assigned",
				zap.String("issue_id", id.Hex()),
				zap.String("volunteer_id", volunteer.Hex()),
				zap.String("actor_id", actor.ID.Hex()),
			)
			return updated, nil
		}
		if !apperrors.IsRetryable(err) {
			s.logger.Error("issue assignment failed", zap.String("issue_id", id.Hex()), zap.Error(err))
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// resolveAssignee must run after Authorize.
func (s *IssueService) resolveAssignee(ctx context.Context, raw string) (primitive.ObjectID, error) {
	volunteer, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperrors.NewValidationError("volunteerId", "volunteerId must be a valid user id")
	}
	if !s.verifyAssignee {
		return volunteer, nil
	}
	target, err := s.directory.Lookup(ctx, volunteer)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return primitive.NilObjectID, apperrors.NewValidationError("volunteerId", "volunteerId does not refer to a known user")
		}
		return primitive.NilObjectID, err
	}
	if target.Role != models.RoleVolunteer {
		return primitive.NilObjectID, apperrors.NewValidationError("volunteerId", "volunteerId does not refer to a volunteer")
	}
	return volunteer, nil
}
