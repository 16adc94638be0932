// Package domain contains the core business entities and rules.
package domain

import (
	"strings"
	"time"
)

// Tweet is a post. A tweet with a ParentID is a reply; tweets and their
// replies form a forest keyed by ID.
type Tweet struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	Likes     int       `json:"likes"`
	ParentID  *int64    `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    int64     `json:"userId"`
	Author    *User     `json:"user,omitempty"`
}

// IsReply reports whether the tweet has a parent.
func (t *Tweet) IsReply() bool {
	return t.ParentID != nil
}

// BlankBody reports whether body is empty or whitespace only.
func BlankBody(body string) bool {
	return strings.TrimSpace(body) == ""
}
