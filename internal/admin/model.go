package admin

import (
	"time"

	"github.com/google/uuid"
)

// Demo tables in deletion order: dependants before the posts they reference.
const (
	TableLikes    = "demo_likes"
	TableComments = "demo_comments"
	TablePosts    = "demo_posts"
)

var demoTables = []string{TableLikes, TableComments, TablePosts}

// Counts reports how many rows of each kind an operation touched.
type Counts struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// DemoPost is a post with its attached demo comments and likes.
type DemoPost struct {
	ID          uuid.UUID
	AuthorID    string
	Title       string
	Content     string
	PublishedAt *time.Time
	CreatedAt   time.Time
	Comments    []DemoComment
	LikedBy     []string
}

// DemoComment is a comment attached to a DemoPost.
type DemoComment struct {
	UserID  string
	Content string
}

// TableStat is the diagnostic view of one table.
type TableStat struct {
	Count  *int64 `json:"count"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SamplePost is the newest post as shown by diagnostics.
type SamplePost struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Diagnostics summarises storage and configuration health.
type Diagnostics struct {
	Database    DatabaseStatus  `json:"database"`
	Redis       DependencyState `json:"redis"`
	Sample      *SamplePost     `json:"sample"`
	Environment map[string]bool `json:"environment"`
}

// DatabaseStatus groups per-table statistics.
type DatabaseStatus struct {
	Connected bool                 `json:"connected"`
	Tables    map[string]TableStat `json:"tables"`
}

// DependencyState is the result of a liveness probe.
type DependencyState struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}
