// Package mongodb provides MongoDB-backed stores.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

// Collection names.
const (
	UsersCollection         = "users"
	TasksCollection         = "tasks"
	ConversationsCollection = "conversations"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store owns the client and hands out per-collection stores.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logger.Logger
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
		opts.SetServerSelectionTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		logger: log,
	}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("connected to mongodb", zap.String("database", cfg.Database))
	return s, nil
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TasksCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		ConversationsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Tasks returns the task store.
func (s *Store) Tasks() *TaskStore {
	return &TaskStore{coll: s.db.Collection(TasksCollection)}
}

// Conversations returns the conversation store.
func (s *Store) Conversations() *ConversationStore {
	return &ConversationStore{coll: s.db.Collection(ConversationsCollection)}
}

// Users returns the user store.
func (s *Store) Users() *UserStore {
	return &UserStore{coll: s.db.Collection(UsersCollection)}
}

// objectID parses a hex id. Malformed ids match nothing.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, model.ErrNotFound
	}
	return oid, nil
}

type dailyDoc struct {
	Date  string `bson:"_id"`
	Count int64  `bson:"count"`
}

// dailyCreated groups coll by UTC creation day since since.
func dailyCreated(ctx context.Context, coll *mongo.Collection, since time.Time) ([]model.DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: since}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []dailyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]model.DailyCount, len(docs))
	for i, d := range docs {
		out[i] = model.DailyCount{Date: d.Date, Count: d.Count}
	}
	return out, nil
}
