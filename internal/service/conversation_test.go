package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/store/memory"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

func userMsg(content string) model.Message {
	return model.Message{Role: model.RoleUser, Content: content}
}

func TestDeriveTitle(t *testing.T) {
	fifty := strings.Repeat("a", TitleLength)

	tests := []struct {
		name     string
		messages []model.Message
		want     string
	}{
		{name: "short", messages: []model.Message{userMsg("Plan the offsite")}, want: "Plan the offsite"},
		{name: "exactly fifty", messages: []model.Message{userMsg(fifty)}, want: fifty},
		{name: "fifty one", messages: []model.Message{userMsg(fifty + "b")}, want: fifty + "..."},
		{
			name: "skips assistant",
			messages: []model.Message{
				{Role: model.RoleAssistant, Content: "How can I help?"},
				userMsg("Book flights"),
			},
			want: "Book flights",
		},
		{name: "no user message", messages: []model.Message{{Role: model.RoleAssistant, Content: "Hi"}}, want: DefaultTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.messages))
		})
	}
}

func newConversationService() (*ConversationService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewConversationService(memory.NewConversationStore(), pub, logger.NewNop()), pub
}

func TestConversationLifecycle(t *testing.T) {
	svc, pub := newConversationService()
	ctx := context.Background()

	conv, err := svc.Create(ctx, "u1", []model.Message{userMsg("Help me plan my week")})
	require.NoError(t, err)
	assert.Equal(t, "Help me plan my week", conv.Title)
	assert.False(t, conv.Messages[0].Timestamp.IsZero())

	full := append(conv.Messages, model.Message{Role: model.RoleAssistant, Content: "Sure"})
	updated, err := svc.ReplaceMessages(ctx, "u1", conv.ID, full)
	require.NoError(t, err)
	assert.Len(t, updated.Messages, 2)
	assert.Equal(t, "Help me plan my week", updated.Title)

	renamed, err := svc.Rename(ctx, "u1", conv.ID, "  Weekly plan ")
	require.NoError(t, err)
	assert.Equal(t, "Weekly plan", renamed.Title)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Weekly plan", list[0].Title)

	require.NoError(t, svc.Delete(ctx, "u1", conv.ID))
	assert.Equal(t, []model.EventType{
		model.EventConversationCreated,
		model.EventConversationUpdated,
		model.EventConversationRenamed,
		model.EventConversationDeleted,
	}, pub.types())
}

func TestConversationOwnershipIsNotFound(t *testing.T) {
	svc, _ := newConversationService()
	ctx := context.Background()
	conv, err := svc.Create(ctx, "u1", []model.Message{userMsg("mine")})
	require.NoError(t, err)

	_, err = svc.Rename(ctx, "u2", conv.ID, "theirs")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.ReplaceMessages(ctx, "u2", conv.ID, []model.Message{userMsg("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "u2", conv.ID), model.ErrNotFound)
}

func TestConversationValidation(t *testing.T) {
	svc, _ := newConversationService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", nil)
	assert.True(t, IsValidation(err))

	_, err = svc.Create(ctx, "u1", []model.Message{{Role: "system", Content: ""}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "messages[0].role")
	assert.Contains(t, verr.Fields, "messages[0].content")

	_, err = svc.Create(ctx, "", []model.Message{userMsg("x")})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Rename(ctx, "u1", "65f1a2b3c4d5e6f708192a3b", " ")
	assert.True(t, IsValidation(err))
	_, err = svc.Rename(ctx, "u1", "65f1a2b3c4d5e6f708192a3b", strings.Repeat("t", MaxTitleLength+1))
	assert.True(t, IsValidation(err))
}
