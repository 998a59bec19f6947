package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"citycare-be/apperrors"
	"citycare-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryIssueStore keeps issues in process memory. It is used for local
// development (STORE_DRIVER=memory) and tests.
type MemoryIssueStore struct {
	mu     sync.RWMutex
	issues map[primitive.ObjectID]*models.Issue
	// seq breaks createdAt ties so listing order is deterministic.
	seq   map[primitive.ObjectID]uint64
	next  uint64
	clock func() time.Time
}

// NewMemoryIssueStore returns an empty store.
func NewMemoryIssueStore() *MemoryIssueStore {
	return &MemoryIssueStore{
		issues: make(map[primitive.ObjectID]*models.Issue),
		seq:    make(map[primitive.ObjectID]uint64),
		clock:  time.Now,
	}
}

func (s *MemoryIssueStore) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := issue.ValidateNew(); err != nil {
		return nil, err
	}

	stored := issue.Clone()
	now := s.clock()
	stored.ID = primitive.NewObjectID()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.issues[stored.ID] = stored
	s.seq[stored.ID] = s.next
	return stored.Clone(), nil
}

func (s *MemoryIssueStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, errIssueNotFound()
	}
	return issue.Clone(), nil
}

func (s *MemoryIssueStore) List(ctx context.Context, filter IssueFilter) ([]models.Issue, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		issue *models.Issue
		seq   uint64
	}
	matched := make([]entry, 0, len(s.issues))
	for id, issue := range s.issues {
		if matches(issue, filter) {
			matched = append(matched, entry{issue: issue, seq: s.seq[id]})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.issue.CreatedAt.Equal(b.issue.CreatedAt) {
			return a.issue.CreatedAt.After(b.issue.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]models.Issue, 0, len(matched))
	for _, e := range matched {
		result = append(result, *e.issue.Clone())
	}
	return result, nil
}

func matches(issue *models.Issue, f IssueFilter) bool {
	if f.Status != nil && issue.Status != *f.Status {
		return false
	}
	if f.Category != nil && issue.Category != *f.Category {
		return false
	}
	if f.ReportedBy != nil && issue.ReportedBy != *f.ReportedBy {
		return false
	}
	if f.AssignedTo != nil && (issue.AssignedTo == nil || *issue.AssignedTo != *f.AssignedTo) {
		return false
	}
	return true
}

func (s *MemoryIssueStore) Update(ctx context.Context, id primitive.ObjectID, expectedVersion int64, m IssueMutation) (*models.Issue, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.issues[id]
	if !ok {
		return nil, errIssueNotFound()
	}
	if current.Version != expectedVersion {
		return nil, errStaleVersion()
	}

	next := current.Clone()
	if m.Status != nil {
		next.Status = *m.Status
		next.StatusHistory = append(next.StatusHistory, *m.AppendEvent)
	}
	if m.AssignedTo != nil {
		assignee := *m.AssignedTo
		next.AssignedTo = &assignee
	}
	next.Version++
	next.UpdatedAt = s.clock()

	s.issues[id] = next
	return next.Clone(), nil
}

func (s *MemoryIssueStore) CountByStatus(ctx context.Context) (map[models.IssueStatus]int64, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.IssueStatus]int64, len(models.IssueStatuses))
	for _, issue := range s.issues {
		counts[issue.Status]++
	}
	return counts, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewPersistenceError("store operation aborted", err)
	}
	return nil
}
