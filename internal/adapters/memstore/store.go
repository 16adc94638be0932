// Package memstore is an in-process store for users and tweets. Tweets live
// in an arena keyed by id with a parent-to-children index for reply lookups.
package memstore

import (
	"context"
	"sort"
	"sync"

	"socialfeed/internal/domain"
)

// Store implements usecases.TweetRepository and usecases.UserRepository.
type Store struct {
	mu sync.RWMutex

	nextTweetID int64
	tweets      map[int64]*domain.Tweet
	children    map[int64][]int64

	nextUserID int64
	users      map[int64]*domain.User
	byUsername map[string]int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tweets:     make(map[int64]*domain.Tweet),
		children:   make(map[int64][]int64),
		users:      make(map[int64]*domain.User),
		byUsername: make(map[string]int64),
	}
}

// Stored values are copied on the way in and out so callers never share
// memory with the arena.
func copyTweet(t *domain.Tweet) *domain.Tweet {
	c := *t
	c.Author = nil
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	return &c
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (s *Store) CreateTweet(_ context.Context, tweet *domain.Tweet) (*domain.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTweetID++
	stored := copyTweet(tweet)
	stored.ID = s.nextTweetID
	s.tweets[stored.ID] = stored
	if stored.ParentID != nil {
		s.children[*stored.ParentID] = append(s.children[*stored.ParentID], stored.ID)
	}
	return copyTweet(stored), nil
}

func (s *Store) GetTweetByID(_ context.Context, id int64) (*domain.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tweets[id]
	if !ok {
		return nil, nil
	}
	return copyTweet(t), nil
}

func (s *Store) GetAllTweets(_ context.Context) ([]*domain.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Tweet, 0, len(s.tweets))
	for _, t := range s.tweets {
		out = append(out, copyTweet(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetTweetsByAuthor(_ context.Context, authorID int64) ([]*domain.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Tweet
	for _, t := range s.tweets {
		if t.UserID == authorID {
			out = append(out, copyTweet(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateTweetBody(_ context.Context, id int64, body string) (*domain.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tweets[id]
	if !ok {
		return nil, nil
	}
	t.Body = body
	return copyTweet(t), nil
}

func (s *Store) IncrementLikes(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tweets[id]
	if !ok {
		return false, nil
	}
	t.Likes++
	return true, nil
}

func (s *Store) DecrementLikes(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tweets[id]
	if !ok || t.Likes <= 0 {
		return false, nil
	}
	t.Likes--
	return true, nil
}

// DeleteTweet removes one tweet and unlinks it from its parent's index.
// Replies are left in place; the cascade belongs to the caller.
func (s *Store) DeleteTweet(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tweets[id]
	if !ok {
		return false, nil
	}
	delete(s.tweets, id)
	delete(s.children, id)
	if t.ParentID != nil {
		siblings := s.children[*t.ParentID]
		for i, sib := range siblings {
			if sib == id {
				s.children[*t.ParentID] = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
		if len(s.children[*t.ParentID]) == 0 {
			delete(s.children, *t.ParentID)
		}
	}
	return true, nil
}

// GetDirectReplies returns replies oldest first.
func (s *Store) GetDirectReplies(_ context.Context, parentID int64) ([]*domain.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.children[parentID]
	out := make([]*domain.Tweet, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tweets[id]; ok {
			out = append(out, copyTweet(t))
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return nil, domain.Conflict("memstore.create_user", "username '%s' is already taken", user.Username)
	}

	s.nextUserID++
	stored := copyUser(user)
	stored.ID = s.nextUserID
	s.users[stored.ID] = stored
	s.byUsername[stored.Username] = stored.ID
	return copyUser(stored), nil
}

func (s *Store) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) DeleteUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	delete(s.users, id)
	delete(s.byUsername, u.Username)
	return u, nil
}
