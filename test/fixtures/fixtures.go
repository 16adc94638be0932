// Package fixtures builds tweet trees for tests.
package fixtures

import (
	"context"
	"fmt"

	"socialfeed/internal/domain"
)

// TweetCreator is anything that can create a tweet the way TweetService does.
type TweetCreator interface {
	Create(ctx context.Context, authorID int64, body string, parentID *int64) (*domain.Tweet, error)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// Thread is a seeded reply tree. Nodes are in creation (pre-order) order;
// Nodes[0] is the root.
type Thread struct {
	Nodes    []*domain.Tweet
	Children map[int64][]int64
}

// Root returns the root tweet.
func (t *Thread) Root() *domain.Tweet {
	return t.Nodes[0]
}

// Descendants returns the number of nodes below the root.
func (t *Thread) Descendants() int {
	return len(t.Nodes) - 1
}

// SeedThread creates a root tweet and, below it, fanout replies per node
// down to depth levels. depth 0 creates only the root.
func SeedThread(ctx context.Context, c TweetCreator, authorID int64, depth, fanout int) (*Thread, error) {
	root, err := c.Create(ctx, authorID, "root", nil)
	if err != nil {
		return nil, err
	}

	th := &Thread{Nodes: []*domain.Tweet{root}, Children: map[int64][]int64{}}
	if err := th.grow(ctx, c, authorID, root, depth, fanout); err != nil {
		return nil, err
	}
	return th, nil
}

func (t *Thread) grow(ctx context.Context, c TweetCreator, authorID int64, parent *domain.Tweet, depth, fanout int) error {
	if depth == 0 {
		return nil
	}
	for i := 0; i < fanout; i++ {
		body := fmt.Sprintf("reply %d to %d", i, parent.ID)
		child, err := c.Create(ctx, authorID, body, Int64(parent.ID))
		if err != nil {
			return err
		}
		t.Nodes = append(t.Nodes, child)
		t.Children[parent.ID] = append(t.Children[parent.ID], child.ID)
		if err := t.grow(ctx, c, authorID, child, depth-1, fanout); err != nil {
			return err
		}
	}
	return nil
}

// PostOrder returns the ids below and including id, children before parents,
// in the order a cascading delete removes them.
func (t *Thread) PostOrder(id int64) []int64 {
	var out []int64
	for _, child := range t.Children[id] {
		out = append(out, t.PostOrder(child)...)
	}
	return append(out, id)
}
