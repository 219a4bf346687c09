package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sahwira-ai/sahwira/internal/model"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Image     string             `bson:"image,omitempty"`
	CreatedAt time.Time          `bson:"timestamp"`
}

func (d userDoc) toModel() *model.User {
	return &model.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Image:     d.Image,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// UserStore persists users in the users collection, unique by email.
type UserStore struct {
	coll *mongo.Collection
}

// Upsert inserts user or refreshes name and image of the record with the same
// email. The creation timestamp is only written on insert.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) (*model.User, bool, error) {
	update := bson.M{
		"$set":         bson.M{"name": user.Name, "image": user.Image},
		"$setOnInsert": bson.M{"timestamp": user.CreatedAt},
	}
	opts := options.Update().SetUpsert(true)

	res, err := s.coll.UpdateOne(ctx, bson.M{"email": user.Email}, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Lost a concurrent first sign-in; the record exists now.
		res, err = s.coll.UpdateOne(ctx, bson.M{"email": user.Email}, update, opts)
	}
	if err != nil {
		return nil, false, err
	}

	stored, err := s.FindByEmail(ctx, user.Email)
	if err != nil {
		return nil, false, err
	}
	return stored, res.UpsertedCount > 0, nil
}

// FindByEmail returns the user with email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// List returns every user in creation order.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	cursor, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]model.User, len(docs))
	for i, d := range docs {
		out[i] = *d.toModel()
	}
	return out, nil
}

// Count returns the number of users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{})
}
