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

type taskDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Task      string             `bson:"task"`
	Priority  string             `bson:"priority"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d taskDoc) toModel() model.Task {
	return model.Task{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Task:      d.Task,
		Priority:  model.Priority(d.Priority),
		Status:    model.TaskStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// TaskStore persists tasks in the tasks collection.
type TaskStore struct {
	coll *mongo.Collection
}

// InsertMany inserts tasks in one ordered batch and assigns their ids.
func (s *TaskStore) InsertMany(ctx context.Context, tasks []*model.Task) error {
	docs := make([]interface{}, len(tasks))
	ids := make([]primitive.ObjectID, len(tasks))
	for i, t := range tasks {
		ids[i] = primitive.NewObjectID()
		docs[i] = taskDoc{
			ID:        ids[i],
			UserID:    t.UserID,
			Task:      t.Task,
			Priority:  string(t.Priority),
			Status:    string(t.Status),
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		}
	}

	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return err
	}
	for i, t := range tasks {
		t.ID = ids[i].Hex()
	}
	return nil
}

// Find returns the tasks matching filter in the requested order.
func (s *TaskStore) Find(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := bson.M{"userId": filter.UserID}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		query["priority"] = string(filter.Priority)
	}

	order := filter.Sort
	if order.Field == "" {
		order = model.DefaultTaskSort
	}
	dir := 1
	if order.Descending {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: string(order.Field), Value: dir}, {Key: "_id", Value: dir}})

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]model.Task, len(docs))
	for i, d := range docs {
		out[i] = d.toModel()
	}
	return out, nil
}

// UpdateOwned patches a task matched by id and owner.
func (s *TaskStore) UpdateOwned(ctx context.Context, id, userID string, patch model.TaskPatch, at time.Time) (*model.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": at}
	if patch.Task != nil {
		set["task"] = *patch.Task
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}

	var doc taskDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "userId": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	task := doc.toModel()
	return &task, nil
}

// CountCompleted counts completed tasks owned by userID.
func (s *TaskStore) CountCompleted(ctx context.Context, userID string) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"userId": userID, "status": string(model.TaskStatusCompleted)})
}

// CompletedCounts maps each owner to their completed-task count.
func (s *TaskStore) CompletedCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: string(model.TaskStatusCompleted)}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$userId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		UserID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(docs))
	for _, d := range docs {
		counts[d.UserID] = d.Count
	}
	return counts, nil
}

// Count returns the number of tasks.
func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{})
}

// DailyCreated counts tasks created per UTC day since since.
func (s *TaskStore) DailyCreated(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	return dailyCreated(ctx, s.coll, since)
}
