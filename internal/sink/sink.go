// Gói sink ghi các item đã fetch xuống đích lưu trữ (MySQL hoặc Kafka)
// với dedup theo natural key: mỗi item chỉ xuất hiện một lần bất kể
// được fetch lại bao nhiêu lần.

package sink

import (
	"context"
	"time"

	"github.com/deadbird/kpi-crawler/internal/githubapi"
)

// Tên resource, dùng làm khóa watermark, nhãn metrics và tên bảng đích.
const (
	ResourceStars          = "stars"
	ResourceForks          = "forks"
	ResourceWatchers       = "watchers"
	ResourceIssues         = "issues"
	ResourcePulls          = "pulls"
	ResourceIssueComments  = "issue_comments"
	ResourceIssueEvents    = "issue_events"
	ResourceIssueReactions = "issue_reactions"
	ResourceReleases       = "releases"
	ResourceCommits        = "commits"
)

type Result int

const (
	Inserted Result = iota
	AlreadyPresent
)

type Sink interface {
	// Upsert ghi một item, idempotent theo (repoKey, resource, natural
	// key). AlreadyPresent nghĩa là item đã tồn tại từ trước.
	Upsert(ctx context.Context, repoKey, resource string, item githubapi.Item) (Result, error)

	// PrimaryKeys liệt kê natural key đã lưu của một resource, cho các
	// resource phụ thuộc (comments/events/reactions cần danh sách issue).
	PrimaryKeys(ctx context.Context, repoKey, resource string) ([]string, error)

	// NewestActivity trả về timestamp hoạt động mới nhất đã lưu của repo,
	// zero time nếu chưa có dữ liệu.
	NewestActivity(ctx context.Context, repoKey string) (time.Time, error)
}
