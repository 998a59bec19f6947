package store

import (
	"context"
	"errors"
	"time"

	"citycare-be/apperrors"
	"citycare-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IssuesCollection is the Mongo collection holding issue documents.
const IssuesCollection = "issues"

// MongoIssueStore stores issues as single documents. The history array lives
// inside the issue document, so the status field and its audit entry are
// written by one document update.
type MongoIssueStore struct {
	collection *mongo.Collection
	timeout    time.Duration
	clock      func() time.Time
}

// NewMongoIssueStore builds a store over db.issues with a per-operation timeout.
func NewMongoIssueStore(db *mongo.Database, timeout time.Duration) *MongoIssueStore {
	return &MongoIssueStore{
		collection: db.Collection(IssuesCollection),
		timeout:    timeout,
		clock:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the indexes backing List filters and ordering.
func (s *MongoIssueStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "reportedBy", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return apperrors.NewPersistenceError("Failed to create issue indexes", err)
	}
	return nil
}

func (s *MongoIssueStore) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if err := issue.ValidateNew(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := issue.Clone()
	now := s.clock()
	doc.ID = primitive.NewObjectID()
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to create issue", err)
	}
	return doc, nil
}

func (s *MongoIssueStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var issue models.Issue
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errIssueNotFound()
		}
		return nil, apperrors.NewPersistenceError("Failed to retrieve issue", err)
	}
	return &issue, nil
}

func (s *MongoIssueStore) List(ctx context.Context, filter IssueFilter) ([]models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.collection.Find(ctx, filterDocument(filter), findOptions)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to retrieve issues", err)
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to decode issues", err)
	}
	return issues, nil
}

func filterDocument(f IssueFilter) bson.M {
	filter := bson.M{}
	if f.Status != nil {
		filter["status"] = *f.Status
	}
	if f.Category != nil {
		filter["category"] = *f.Category
	}
	if f.AssignedTo != nil {
		filter["assignedTo"] = *f.AssignedTo
	}
	if f.ReportedBy != nil {
		filter["reportedBy"] = *f.ReportedBy
	}
	return filter
}

func updateDocument(m IssueMutation, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if m.Status != nil {
		set["status"] = *m.Status
		update["$push"] = bson.M{"statusHistory": *m.AppendEvent}
	}
	if m.AssignedTo != nil {
		set["assignedTo"] = *m.AssignedTo
	}
	return update
}

func (s *MongoIssueStore) Update(ctx context.Context, id primitive.ObjectID, expectedVersion int64, m IssueMutation) (*models.Issue, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Issue
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		updateDocument(m, s.clock()),
		opts,
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		// The server may have applied the write before the failure surfaced.
		return nil, apperrors.NewPersistenceError("Issue update outcome unknown", err)
	}

	count, err := s.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to retrieve issue", err)
	}
	if count == 0 {
		return nil, errIssueNotFound()
	}
	return nil, errStaleVersion()
}

func (s *MongoIssueStore) CountByStatus(ctx context.Context) (map[models.IssueStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":   "$status",
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to aggregate issue statuses", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.IssueStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to decode issue statuses", err)
	}

	counts := make(map[models.IssueStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
