package directory

import (
	"context"

	"citycare-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Populator expands the user references of issues for API responses. Lookup
// failures are logged and the references are returned unexpanded, since the
// issue itself was already read or written.
type Populator struct {
	lookup ProfileLookup
	logger *zap.Logger
}

// NewPopulator accepts a nil lookup, in which case every reference keeps only
// its id.
func NewPopulator(lookup ProfileLookup, logger *zap.Logger) *Populator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Populator{lookup: lookup, logger: logger}
}

func (p *Populator) Issue(ctx context.Context, issue *models.Issue) *models.IssueView {
	return models.NewIssueView(issue, p.profiles(ctx, issue.UserRefs()))
}

// Issues resolves the references of all issues with one lookup.
func (p *Populator) Issues(ctx context.Context, issues []models.Issue) []models.IssueView {
	seen := make(map[primitive.ObjectID]struct{})
	var refs []primitive.ObjectID
	for i := range issues {
		for _, id := range issues[i].UserRefs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				refs = append(refs, id)
			}
		}
	}

	users := p.profiles(ctx, refs)
	views := make([]models.IssueView, 0, len(issues))
	for i := range issues {
		views = append(views, *models.NewIssueView(&issues[i], users))
	}
	return views
}

func (p *Populator) profiles(ctx context.Context, ids []primitive.ObjectID) map[primitive.ObjectID]models.UserSummary {
	if p.lookup == nil || len(ids) == 0 {
		return nil
	}
	users, err := p.lookup.Profiles(ctx, ids)
	if err != nil {
		p.logger.Warn("user population failed", zap.Int("refs", len(ids)), zap.Error(err))
		return nil
	}
	return users
}
