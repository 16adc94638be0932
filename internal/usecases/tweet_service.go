package usecases

import (
	"context"
	"time"

	"socialfeed/internal/domain"
	"socialfeed/internal/metrics"
	"socialfeed/pkg/log"
)

// AuthorLookup resolves tweet authors. *UserService satisfies it.
type AuthorLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TweetService enforces tweet invariants and orchestrates persistence and
// notification. It keeps no state between calls; every operation re-reads
// the store.
type TweetService struct {
	tweets   TweetRepository
	authors  AuthorLookup
	notifier Notifier
	now      func() time.Time
}

// TweetServiceOption customizes a TweetService.
type TweetServiceOption func(*TweetService)

// WithClock overrides the time source used for CreatedAt and event stamps.
func WithClock(now func() time.Time) TweetServiceOption {
	return func(s *TweetService) { s.now = now }
}

// NewTweetService creates a new TweetService.
func NewTweetService(tweets TweetRepository, authors AuthorLookup, notifier Notifier, opts ...TweetServiceOption) *TweetService {
	s := &TweetService{
		tweets:   tweets,
		authors:  authors,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new tweet, then broadcasts it.
// Checks run in order: body, parent, author.
func (s *TweetService) Create(ctx context.Context, authorID int64, body string, parentID *int64) (*domain.Tweet, error) {
	const op = "tweet.create"

	if domain.BlankBody(body) {
		return nil, domain.Validation(op, "tweet body cannot be empty")
	}

	if parentID != nil {
		parent, err := s.tweets.GetTweetByID(ctx, *parentID)
		if err != nil {
			return nil, domain.Internal(op, err)
		}
		if parent == nil {
			return nil, domain.NotFound(op, "parent tweet with ID %d does not exist", *parentID)
		}
	}

	author, err := s.authors.GetByID(ctx, authorID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NotFound(op, "user with ID %d does not exist", authorID)
		}
		return nil, err
	}

	tweet := &domain.Tweet{
		Body:      body,
		Likes:     0,
		ParentID:  parentID,
		CreatedAt: s.now().UTC(),
		UserID:    author.ID,
	}

	created, err := s.tweets.CreateTweet(ctx, tweet)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	created.Author = author

	log.InfoCtx(ctx, "tweet created", "tweet_id", created.ID, "user_id", author.ID, "reply", created.IsReply())
	s.broadcast(ctx, domain.EventTweetCreated, created)

	return created, nil
}

// GetByID returns a single tweet.
func (s *TweetService) GetByID(ctx context.Context, id int64) (*domain.Tweet, error) {
	return s.mustGet(ctx, "tweet.get", id)
}

// GetAll returns every tweet, most recent first. An empty feed is reported
// as KindNotFound rather than an empty slice.
func (s *TweetService) GetAll(ctx context.Context) ([]*domain.Tweet, error) {
	const op = "tweet.list"

	tweets, err := s.tweets.GetAllTweets(ctx)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if len(tweets) == 0 {
		return nil, domain.NotFound(op, "no tweets found")
	}
	return tweets, nil
}

// GetByAuthor returns the tweets written by authorID. No tweets is KindNotFound.
func (s *TweetService) GetByAuthor(ctx context.Context, authorID int64) ([]*domain.Tweet, error) {
	const op = "tweet.list_by_author"

	if authorID <= 0 {
		return nil, domain.Validation(op, "user ID must be greater than 0")
	}

	tweets, err := s.tweets.GetTweetsByAuthor(ctx, authorID)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if len(tweets) == 0 {
		return nil, domain.NotFound(op, "no tweets found for user with ID %d", authorID)
	}
	return tweets, nil
}

// UpdateBody replaces the body of an existing tweet.
func (s *TweetService) UpdateBody(ctx context.Context, id int64, body string) (*domain.Tweet, error) {
	const op = "tweet.update"

	if domain.BlankBody(body) {
		return nil, domain.Validation(op, "tweet body cannot be empty")
	}
	if _, err := s.mustGet(ctx, op, id); err != nil {
		return nil, err
	}

	updated, err := s.tweets.UpdateTweetBody(ctx, id, body)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if updated == nil {
		// Removed between the check and the write.
		return nil, domain.NotFound(op, "tweet with ID %d does not exist", id)
	}
	if updated.Author == nil {
		if author, err := s.authors.GetByID(ctx, updated.UserID); err == nil {
			updated.Author = author
		}
	}

	s.broadcast(ctx, domain.EventTweetUpdated, updated)
	return updated, nil
}

// Like adds one like.
func (s *TweetService) Like(ctx context.Context, id int64) (bool, error) {
	const op = "tweet.like"

	if _, err := s.mustGet(ctx, op, id); err != nil {
		return false, err
	}

	ok, err := s.tweets.IncrementLikes(ctx, id)
	if err != nil {
		return false, domain.Internal(op, err)
	}
	if !ok {
		return false, domain.NotFound(op, "tweet with ID %d does not exist", id)
	}

	s.broadcast(ctx, domain.EventTweetLiked, id)
	return true, nil
}

// Unlike removes one like. A tweet at zero likes is a KindConflict and
// stays at zero.
func (s *TweetService) Unlike(ctx context.Context, id int64) (bool, error) {
	const op = "tweet.unlike"

	tweet, err := s.mustGet(ctx, op, id)
	if err != nil {
		return false, err
	}
	if tweet.Likes <= 0 {
		return false, domain.Conflict(op, "tweet with ID %d cannot have less than 0 likes", id)
	}

	ok, err := s.tweets.DecrementLikes(ctx, id)
	if err != nil {
		return false, domain.Internal(op, err)
	}
	if !ok {
		// A concurrent unlike (or delete) got there first.
		return false, domain.Conflict(op, "tweet with ID %d cannot have less than 0 likes", id)
	}

	s.broadcast(ctx, domain.EventTweetUnliked, id)
	return true, nil
}

// Delete removes a tweet together with its whole reply subtree, children
// before parents. A "tweet deleted" event follows each removal.
//
// The cascade is not transactional. If removing a descendant fails, the
// error is returned, nodes removed so far stay removed (and were
// announced), and the root may remain.
func (s *TweetService) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "tweet.delete"

	if _, err := s.mustGet(ctx, op, id); err != nil {
		return false, err
	}

	removed := 0
	if err := s.deleteSubtree(ctx, op, id, &removed); err != nil {
		log.ErrorCtx(ctx, "cascade delete aborted", "tweet_id", id, "removed", removed, "error", err)
		return false, err
	}

	log.InfoCtx(ctx, "tweet deleted", "tweet_id", id, "removed", removed)
	return true, nil
}

func (s *TweetService) deleteSubtree(ctx context.Context, op string, id int64, removed *int) error {
	children, err := s.tweets.GetDirectReplies(ctx, id)
	if err != nil {
		return domain.Internal(op, err)
	}
	for _, child := range children {
		if err := s.deleteSubtree(ctx, op, child.ID, removed); err != nil {
			return err
		}
	}

	ok, err := s.tweets.DeleteTweet(ctx, id)
	if err != nil {
		return domain.Internal(op, err)
	}
	if !ok {
		return domain.NotFound(op, "tweet with ID %d does not exist", id)
	}

	*removed++
	metrics.CascadeRemovals.Inc()
	s.broadcast(ctx, domain.EventTweetDeleted, id)
	return nil
}

// GetReplies returns the direct replies to a tweet, one level deep.
// A tweet without replies is KindNotFound.
func (s *TweetService) GetReplies(ctx context.Context, id int64) ([]*domain.Tweet, error) {
	const op = "tweet.replies"

	if _, err := s.mustGet(ctx, op, id); err != nil {
		return nil, err
	}

	replies, err := s.tweets.GetDirectReplies(ctx, id)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if len(replies) == 0 {
		return nil, domain.NotFound(op, "no replies found for tweet with ID %d", id)
	}
	return replies, nil
}

func (s *TweetService) mustGet(ctx context.Context, op string, id int64) (*domain.Tweet, error) {
	tweet, err := s.tweets.GetTweetByID(ctx, id)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	if tweet == nil {
		return nil, domain.NotFound(op, "tweet with ID %d does not exist", id)
	}
	return tweet, nil
}

func (s *TweetService) broadcast(ctx context.Context, name string, payload any) {
	metrics.Mutations.WithLabelValues(name).Inc()
	s.notifier.Broadcast(ctx, domain.NewEvent(name, payload, s.now()))
}
