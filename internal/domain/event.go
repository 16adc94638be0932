package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event names broadcast after successful tweet mutations.
const (
	EventTweetCreated = "tweet created"
	EventTweetUpdated = "tweet updated"
	EventTweetLiked   = "tweet liked"
	EventTweetUnliked = "tweet unliked"
	EventTweetDeleted = "tweet deleted"
)

// Event is an informational notification about a mutation. Payload is the
// full *Tweet for created/updated events and the tweet id (int64) otherwise.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"event"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent stamps a new event with a random id and the given time.
func NewEvent(name string, payload any, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		OccurredAt: at.UTC(),
	}
}

// TweetID returns the id of the tweet the event is about.
func (e Event) TweetID() int64 {
	switch p := e.Payload.(type) {
	case *Tweet:
		if p != nil {
			return p.ID
		}
	case Tweet:
		return p.ID
	case int64:
		return p
	}
	return 0
}
