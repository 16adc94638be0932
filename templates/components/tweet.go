package components

import (
	"fmt"
	"time"

	"socialfeed/internal/domain"
)

func tweetAnchor(t *domain.Tweet) string {
	return fmt.Sprintf("tweet-%d", t.ID)
}

func authorLabel(t *domain.Tweet) string {
	if t.Author != nil {
		return "@" + t.Author.Username
	}
	return fmt.Sprintf("user #%d", t.UserID)
}

func likesLabel(t *domain.Tweet) string {
	if t.Likes == 1 {
		return "1 like"
	}
	return fmt.Sprintf("%d likes", t.Likes)
}

func replyLabel(t *domain.Tweet) string {
	return fmt.Sprintf("reply to #%d", *t.ParentID)
}

func isoTime(t *domain.Tweet) string {
	return t.CreatedAt.UTC().Format(time.RFC3339)
}

func shortTime(t *domain.Tweet) string {
	return t.CreatedAt.UTC().Format("2006-01-02 15:04")
}
