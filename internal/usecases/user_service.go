package usecases

import (
	"context"
	"strings"

	"socialfeed/internal/domain"
	"socialfeed/pkg/log"
)

// UserService manages accounts and answers author lookups for TweetService.
type UserService struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

// Create stores a new account. The password is hashed before it reaches the store.
func (s *UserService) Create(ctx context.Context, username, password string) (*domain.User, error) {
	const op = "user.create"

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Validation(op, "username cannot be empty")
	}
	if password == "" {
		return nil, domain.Validation(op, "password cannot be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, domain.Internal(op, err)
	}

	created, err := s.users.CreateUser(ctx, &domain.User{Username: username, PasswordHash: hash})
	if err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return nil, err
		}
		return nil, domain.Internal(op, err)
	}

	log.InfoCtx(ctx, "user created", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// GetAll returns every account in store order. An empty result is not an error.
func (s *UserService) GetAll(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return nil, domain.Internal("user.list", err)
	}
	return users, nil
}

// GetByID returns the account or a KindNotFound error.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "user.get"

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if user == nil {
		return nil, domain.NotFound(op, "user with ID %d not found", id)
	}
	return user, nil
}

// GetByUsername looks an account up by name. A miss is reported as
// KindConflict, not KindNotFound; callers that care translate it.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const op = "user.get_by_username"

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Validation(op, "username cannot be empty")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if user == nil {
		return nil, domain.Conflict(op, "user with username '%s' not found", username)
	}
	return user, nil
}

// DeleteByID removes an account and returns it. Tweets by the user are kept.
func (s *UserService) DeleteByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "user.delete"

	deleted, err := s.users.DeleteUserByID(ctx, id)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if deleted == nil {
		return nil, domain.NotFound(op, "user with ID %d not found", id)
	}

	log.InfoCtx(ctx, "user deleted", "user_id", id)
	return deleted, nil
}
