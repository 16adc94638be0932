package usecases_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"socialfeed/internal/domain"
)

// fakeTweets is an in-memory TweetRepository with failure injection.
type fakeTweets struct {
	mu      sync.Mutex
	nextID  int64
	tweets  map[int64]*domain.Tweet
	creates int

	getErr     error
	deleteErrs map[int64]error
	deleted    []int64
}

func newFakeTweets() *fakeTweets {
	return &fakeTweets{tweets: map[int64]*domain.Tweet{}, deleteErrs: map[int64]error{}}
}

func clone(t *domain.Tweet) *domain.Tweet {
	c := *t
	return &c
}

func (f *fakeTweets) CreateTweet(_ context.Context, t *domain.Tweet) (*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.creates++
	stored := clone(t)
	stored.ID = f.nextID
	f.tweets[stored.ID] = stored
	return clone(stored), nil
}

func (f *fakeTweets) GetTweetByID(_ context.Context, id int64) (*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.tweets[id]
	if !ok {
		return nil, nil
	}
	return clone(t), nil
}

func (f *fakeTweets) list(keep func(*domain.Tweet) bool) []*domain.Tweet {
	var out []*domain.Tweet
	for _, t := range f.tweets {
		if keep(t) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeTweets) GetAllTweets(_ context.Context) ([]*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.list(func(*domain.Tweet) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTweets) GetTweetsByAuthor(_ context.Context, authorID int64) ([]*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(t *domain.Tweet) bool { return t.UserID == authorID }), nil
}

func (f *fakeTweets) UpdateTweetBody(_ context.Context, id int64, body string) (*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tweets[id]
	if !ok {
		return nil, nil
	}
	t.Body = body
	return clone(t), nil
}

func (f *fakeTweets) IncrementLikes(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tweets[id]
	if !ok {
		return false, nil
	}
	t.Likes++
	return true, nil
}

func (f *fakeTweets) DecrementLikes(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tweets[id]
	if !ok || t.Likes == 0 {
		return false, nil
	}
	t.Likes--
	return true, nil
}

func (f *fakeTweets) DeleteTweet(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErrs[id]; err != nil {
		return false, err
	}
	if _, ok := f.tweets[id]; !ok {
		return false, nil
	}
	delete(f.tweets, id)
	f.deleted = append(f.deleted, id)
	return true, nil
}

func (f *fakeTweets) GetDirectReplies(_ context.Context, parentID int64) ([]*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(t *domain.Tweet) bool { return t.ParentID != nil && *t.ParentID == parentID }), nil
}

func (f *fakeTweets) likes(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tweets[id].Likes
}

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*domain.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return nil, domain.Conflict("fake.create_user", "username %q is already taken", u.Username)
		}
	}
	f.nextID++
	stored := *u
	stored.ID = f.nextID
	f.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (f *fakeUsers) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out, f.err
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, name string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == name {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) DeleteUserByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	delete(f.users, id)
	return u, nil
}

// recordingNotifier keeps every broadcast event in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingNotifier) Broadcast(_ context.Context, e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingNotifier) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event{}, r.events...)
}

func (r *recordingNotifier) Names() []string {
	var names []string
	for _, e := range r.Events() {
		names = append(names, e.Name)
	}
	return names
}

// reverseHasher is a deterministic stand-in for bcrypt.
type reverseHasher struct{ err error }

func (h reverseHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	var b strings.Builder
	for i := len(password) - 1; i >= 0; i-- {
		b.WriteByte(password[i])
	}
	return "hashed:" + b.String(), nil
}

var errStoreDown = errors.New("store unavailable")
