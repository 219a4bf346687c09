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

type messageDoc struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

type conversationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Title     string             `bson:"title"`
	Messages  []messageDoc       `bson:"messages"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func toMessageDocs(messages []model.Message) []messageDoc {
	out := make([]messageDoc, len(messages))
	for i, m := range messages {
		out[i] = messageDoc{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
	}
	return out
}

func toMessages(docs []messageDoc) []model.Message {
	out := make([]model.Message, len(docs))
	for i, d := range docs {
		out[i] = model.Message{Role: model.Role(d.Role), Content: d.Content, Timestamp: d.Timestamp.UTC()}
	}
	return out
}

func (d conversationDoc) toModel() *model.Conversation {
	return &model.Conversation{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Title:     d.Title,
		Messages:  toMessages(d.Messages),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// ConversationStore persists conversations in the conversations collection.
type ConversationStore struct {
	coll *mongo.Collection
}

// Insert stores conv and assigns its id.
func (s *ConversationStore) Insert(ctx context.Context, conv *model.Conversation) error {
	doc := conversationDoc{
		ID:        primitive.NewObjectID(),
		UserID:    conv.UserID,
		Title:     conv.Title,
		Messages:  toMessageDocs(conv.Messages),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	conv.ID = doc.ID.Hex()
	return nil
}

// ListByUser returns userID's conversations, most recently updated first.
func (s *ConversationStore) ListByUser(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.D{{Key: "title", Value: 1}, {Key: "messages", Value: 1}, {Key: "updatedAt", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []conversationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]model.ConversationSummary, len(docs))
	for i, d := range docs {
		out[i] = model.ConversationSummary{
			ID:        d.ID.Hex(),
			Title:     d.Title,
			Messages:  toMessages(d.Messages),
			UpdatedAt: d.UpdatedAt.UTC(),
		}
	}
	return out, nil
}

// ReplaceMessagesOwned overwrites the message list of a conversation matched by id and owner.
func (s *ConversationStore) ReplaceMessagesOwned(ctx context.Context, id, userID string, messages []model.Message, at time.Time) (*model.Conversation, error) {
	return s.updateOwned(ctx, id, userID, bson.M{"messages": toMessageDocs(messages), "updatedAt": at})
}

// RenameOwned sets the title of a conversation matched by id and owner.
func (s *ConversationStore) RenameOwned(ctx context.Context, id, userID, title string) (*model.Conversation, error) {
	return s.updateOwned(ctx, id, userID, bson.M{"title": title})
}

func (s *ConversationStore) updateOwned(ctx context.Context, id, userID string, set bson.M) (*model.Conversation, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc conversationDoc
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
	return doc.toModel(), nil
}

// DeleteOwned removes a conversation matched by id and owner.
func (s *ConversationStore) DeleteOwned(ctx context.Context, id, userID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Count returns the number of conversations.
func (s *ConversationStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{})
}

// DailyCreated counts conversations created per UTC day since since.
func (s *ConversationStore) DailyCreated(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	return dailyCreated(ctx, s.coll, since)
}
