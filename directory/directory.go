// Package directory resolves actor identities to their canonical role. It is
// read-only from the lifecycle core's point of view.
package directory

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

// UsersCollection holds the account documents owned by the auth service.
const UsersCollection = "users"

// ActorDirectory looks up actors by id.
type ActorDirectory interface {
	Lookup(ctx context.Context, id primitive.ObjectID) (models.Actor, error)
}

// MongoDirectory reads actors from the users collection.
type MongoDirectory struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoDirectory(db *mongo.Database, timeout time.Duration) *MongoDirectory {
	return &MongoDirectory{collection: db.Collection(UsersCollection), timeout: timeout}
}

func (d *MongoDirectory) Lookup(ctx context.Context, id primitive.ObjectID) (models.Actor, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	projection := options.FindOne().SetProjection(bson.M{"_id": 1, "userType": 1, "role": 1})
	var user models.User
	err := d.collection.FindOne(ctx, bson.M{"_id": id}, projection).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Actor{}, apperrors.NewNotFoundError("User not found")
		}
		return models.Actor{}, apperrors.NewPersistenceError("Failed to retrieve user", err)
	}
	return user.Actor(), nil
}

// ProfileLookup resolves user summaries in bulk. Unknown ids are absent from
// the result.
type ProfileLookup interface {
	Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

func (d *MongoDirectory) Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	profiles := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	projection := options.Find().SetProjection(bson.M{"_id": 1, "fullName": 1, "email": 1})
	cursor, err := d.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, apperrors.NewPersistenceError("Failed to retrieve users", err)
	}
	defer cursor.Close(ctx)

	var users []models.UserSummary
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to decode users", err)
	}
	for _, u := range users {
		profiles[u.ID] = u
	}
	return profiles, nil
}
