package posts

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry owned by its author.
type Post struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    string     `json:"authorId"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Comment belongs to a post and is owned by its writer.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Like belongs to a post and is owned by the user who left it.
type Like struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"postId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"created_at"`
}

// Affordances tell a client which mutations the viewer may attempt.
type Affordances struct {
	CanUpdate  bool `json:"canUpdate"`
	CanDelete  bool `json:"canDelete"`
	CanPublish bool `json:"canPublish"`
}

// PostView is a post as seen by a particular viewer.
type PostView struct {
	Post
	Viewer Affordances `json:"viewer"`
}
