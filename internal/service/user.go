package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

// Identity is the authenticated session subject.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
}

// UserService manages user accounts.
type UserService struct {
	store  UserStore
	events EventPublisher
	logger *logger.Logger
	now    func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(store UserStore, events EventPublisher, log *logger.Logger) *UserService {
	return &UserService{
		store:  store,
		events: events,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sync creates the account on first sign-in, afterwards refreshing name and image.
// Body fields take precedence over session claims.
func (s *UserService) Sync(ctx context.Context, id Identity, req model.SyncUserRequest) (*model.User, error) {
	email := strings.TrimSpace(id.Email)
	if email == "" {
		return nil, ErrUnauthorized
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(id.Name)
	}
	if name == "" {
		// Accounts always carry a name; the mailbox is the best we have.
		name, _, _ = strings.Cut(email, "@")
	}
	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = id.Picture
	}

	user, created, err := s.store.Upsert(ctx, &model.User{
		Name:      name,
		Email:     email,
		Image:     image,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}

	publish(ctx, s.events, s.logger, &model.Event{
		Type:      model.EventUserSynced,
		UserID:    email,
		SubjectID: user.ID,
		Data:      map[string]any{"created": created},
	})
	if created {
		s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("email", email))
	}

	return user, nil
}

// Me returns the account of email, or model.ErrNotFound before the first sync.
func (s *UserService) Me(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	return s.store.FindByEmail(ctx, email)
}
