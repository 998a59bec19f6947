// Package services implements the issue lifecycle: reporting, status
// transitions, volunteer assignment and statistics.
package services

import (
	"context"
	"strings"
	"time"

	"citycare-be/apperrors"
	"citycare-be/directory"
	"citycare-be/models"
	"citycare-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultTransitionAttempts = 3

// IssueService coordinates the authorization policy with the issue store.
type IssueService struct {
	store          store.IssueStore
	directory      directory.ActorDirectory
	verifyAssignee bool
	attempts       int
	clock          func() time.Time
	logger         *zap.Logger
}

// Option customises an IssueService.
type Option func(*IssueService)

// WithAssigneeVerification resolves assignment targets through dir and
// rejects any that is not a volunteer.
func WithAssigneeVerification(dir directory.ActorDirectory) Option {
	return func(s *IssueService) {
		s.directory = dir
		s.verifyAssignee = dir != nil
	}
}

// WithTransitionAttempts bounds how many times a write that lost a version
// race is re-read and re-tried.
func WithTransitionAttempts(n int) Option {
	return func(s *IssueService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *IssueService) { s.clock = clock }
}

func NewIssueService(st store.IssueStore, logger *zap.Logger, opts ...Option) *IssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &IssueService{
		store:    st,
		attempts: defaultTransitionAttempts,
		clock:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportInput is a citizen's report before it becomes an Issue.
type ReportInput struct {
	Title       string
	Description string
	Category    string
	Location    string
	Image       *string
}

// Report creates a pending issue whose history is seeded with the reporting
// event.
func (s *IssueService) Report(ctx context.Context, actor models.Actor, in ReportInput) (*models.Issue, error) {
	if actor.ID.IsZero() {
		return nil, apperrors.NewValidationError("reportedBy", "reportedBy is required")
	}
	category, err := models.ParseIssueCategory(in.Category)
	if err != nil {
		return nil, err
	}

	var image *string
	if in.Image != nil && strings.TrimSpace(*in.Image) != "" {
		trimmed := strings.TrimSpace(*in.Image)
		image = &trimmed
	}

	issue := &models.Issue{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Location:    strings.TrimSpace(in.Location),
		Image:       image,
		Status:      models.StatusPending,
		ReportedBy:  actor.ID,
		StatusHistory: []models.StatusChangeEvent{{
			Status:    models.StatusPending,
			ChangedBy: actor.ID,
			ChangedAt: s.clock(),
			Note:      "Reported by user",
			ActorRole: actor.Role,
		}},
	}

	created, err := s.store.Create(ctx, issue)
	if err != nil {
		return nil, err
	}
	s.logger.Info("issue reported",
		zap.String("issue_id", created.ID.Hex()),
		zap.String("reported_by", actor.ID.Hex()),
		zap.String("category", string(created.Category)),
	)
	return created, nil
}

// Get loads one issue. Malformed ids are reported as not found.
func (s *IssueService) Get(ctx context.Context, issueID string) (*models.Issue, error) {
	id, err := parseIssueID(issueID)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// List returns issues matching filter, newest first.
func (s *IssueService) List(ctx context.Context, filter store.IssueFilter) ([]models.Issue, error) {
	return s.store.List(ctx, filter)
}

// ListReportedBy returns the issues actor reported.
func (s *IssueService) ListReportedBy(ctx context.Context, actor models.Actor) ([]models.Issue, error) {
	id := actor.ID
	return s.store.List(ctx, store.IssueFilter{ReportedBy: &id})
}

// ListAssignedTo returns the issues assigned to actor.
func (s *IssueService) ListAssignedTo(ctx context.Context, actor models.Actor) ([]models.Issue, error) {
	id := actor.ID
	return s.store.List(ctx, store.IssueFilter{AssignedTo: &id})
}

func parseIssueID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperrors.NewNotFoundError("Issue not found")
	}
	return id, nil
}
