// Package cache keeps recently read tweets in memory in front of a
// usecases.TweetRepository.
package cache

import (
	"context"

	"socialfeed/internal/domain"
	"socialfeed/internal/metrics"
	"socialfeed/internal/usecases"
)

// TweetRepository is a read-through decorator. GetTweetByID is served from
// the cache; every write to a tweet drops its entry. A read that overlaps
// a write is returned but not cached. List queries always hit the
// underlying store.
type TweetRepository struct {
	usecases.TweetRepository
	cache *MemoryCache
}

// NewTweetRepository wraps next with c.
func NewTweetRepository(next usecases.TweetRepository, c *MemoryCache) *TweetRepository {
	return &TweetRepository{TweetRepository: next, cache: c}
}

func (r *TweetRepository) GetTweetByID(ctx context.Context, id int64) (*domain.Tweet, error) {
	if t, ok := r.cache.Get(id); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return t, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	epoch := r.cache.Epoch()
	t, err := r.TweetRepository.GetTweetByID(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	r.cache.SetIfCurrent(t, epoch)
	return t, nil
}

func (r *TweetRepository) UpdateTweetBody(ctx context.Context, id int64, body string) (*domain.Tweet, error) {
	defer r.cache.Invalidate(id)
	return r.TweetRepository.UpdateTweetBody(ctx, id, body)
}

func (r *TweetRepository) IncrementLikes(ctx context.Context, id int64) (bool, error) {
	defer r.cache.Invalidate(id)
	return r.TweetRepository.IncrementLikes(ctx, id)
}

func (r *TweetRepository) DecrementLikes(ctx context.Context, id int64) (bool, error) {
	defer r.cache.Invalidate(id)
	return r.TweetRepository.DecrementLikes(ctx, id)
}

func (r *TweetRepository) DeleteTweet(ctx context.Context, id int64) (bool, error) {
	defer r.cache.Invalidate(id)
	return r.TweetRepository.DeleteTweet(ctx, id)
}
