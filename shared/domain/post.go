package domain

import "time"

type Post struct {
	Id        PostId
	AuthorId  MemberId
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tombstone
}

// WithinWindow reports whether now is at most window after the post was created.
// The boundary itself is inside the window.
func (p Post) WithinWindow(now time.Time, window time.Duration) bool {
	return now.Sub(p.CreatedAt) <= window
}

type Comment struct {
	Id        CommentId
	PostId    PostId
	AuthorId  MemberId
	ParentId  *CommentId
	Depth     int // 1 for top-level comments
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tombstone
}
