package components_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"socialfeed/internal/domain"
	"socialfeed/templates/components"
)

func TestTweetCard_RendersReplyAndAuthor(t *testing.T) {
	// Arrange
	parent := int64(3)
	tweet := &domain.Tweet{
		ID:        9,
		Body:      "a <i>reply</i>",
		Likes:     1,
		ParentID:  &parent,
		CreatedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		UserID:    2,
		Author:    &domain.User{ID: 2, Username: "bob"},
	}
	var buf bytes.Buffer

	// Act
	err := components.TweetCard(tweet).Render(context.Background(), &buf)

	// Assert
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		`id="tweet-9"`,
		"a &lt;i&gt;reply&lt;/i&gt;",
		"@bob",
		"1 like",
		`datetime="2024-05-01T12:30:00Z"`,
		"reply to #3",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in %s", want, html)
		}
	}
}

func TestTweetCard_TopLevelTweet(t *testing.T) {
	tweet := &domain.Tweet{ID: 1, Body: "root", Likes: 4, UserID: 7}
	var buf bytes.Buffer

	if err := components.TweetCard(tweet).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := buf.String()
	if strings.Contains(html, "reply to") {
		t.Errorf("top-level tweet rendered as a reply: %s", html)
	}
	if !strings.Contains(html, "user #7") || !strings.Contains(html, "4 likes") {
		t.Errorf("unexpected card: %s", html)
	}
}
