// Gói githubapi cung cấp caller và paginator cho GitHub REST API cùng
// các cấu trúc ánh xạ response của từng resource.

package githubapi

import (
	"encoding/json"
	"time"
)

// Item là một bản ghi đã fetch, độc lập với resource type: natural key
// để dedup, khóa so sánh (ID hoặc timestamp) để lọc theo watermark, và
// payload gốc được giữ nguyên dưới dạng JSON.
type Item struct {
	Key string
	ID  int64
	At  time.Time
	Raw json.RawMessage
}

type UserRecord struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// StarRecord yêu cầu Accept: application/vnd.github.star+json để có
// trường starred_at.
type StarRecord struct {
	StarredAt time.Time  `json:"starred_at"`
	User      UserRecord `json:"user"`
}

type ForkRecord struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type IssueRecord struct {
	Number    int64     `json:"number"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Khác nil nghĩa là bản ghi issue này thực chất là một pull request.
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

type PullRecord struct {
	Number    int64      `json:"number"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

type CommentRecord struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	User      UserRecord `json:"user"`
}

type EventRecord struct {
	ID        int64     `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
}

type ReactionRecord struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	User      UserRecord `json:"user"`
}

type ReleaseRecord struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}

type CommitRecord struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}
