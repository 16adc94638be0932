package usecases

import (
	"context"

	"socialfeed/internal/domain"
)

// TweetRepository is the persistence contract for tweets. Lookups return
// (nil, nil) when the record is absent; errors are reserved for store failures.
type TweetRepository interface {
	CreateTweet(ctx context.Context, tweet *domain.Tweet) (*domain.Tweet, error)
	GetTweetByID(ctx context.Context, id int64) (*domain.Tweet, error)
	// GetAllTweets returns every tweet, most recent first.
	GetAllTweets(ctx context.Context) ([]*domain.Tweet, error)
	GetTweetsByAuthor(ctx context.Context, authorID int64) ([]*domain.Tweet, error)
	UpdateTweetBody(ctx context.Context, id int64, body string) (*domain.Tweet, error)
	// IncrementLikes and DecrementLikes are atomic in the store.
	// DecrementLikes returns false instead of going below zero.
	IncrementLikes(ctx context.Context, id int64) (bool, error)
	DecrementLikes(ctx context.Context, id int64) (bool, error)
	// DeleteTweet removes a single record; it does not cascade.
	DeleteTweet(ctx context.Context, id int64) (bool, error)
	GetDirectReplies(ctx context.Context, parentID int64) ([]*domain.Tweet, error)
}

// UserRepository is the persistence contract for accounts. Same absent
// conventions as TweetRepository. CreateUser returns a domain.KindConflict
// error when the username is taken.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	DeleteUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Notifier receives events after successful mutations. Broadcast must not
// block on delivery and has no failure outcome.
type Notifier interface {
	Broadcast(ctx context.Context, event domain.Event)
}

// PasswordHasher turns a clear-text password into a storable hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}
