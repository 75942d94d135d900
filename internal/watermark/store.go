// Gói watermark lưu vị trí đồng bộ của từng cặp (repo, resource) để lần
// chạy sau tiếp tục từ điểm đã dừng thay vì fetch lại toàn bộ.

package watermark

import (
	"context"
	"time"
)

// Kind của cursor: so sánh theo ID tăng dần hoặc theo timestamp.
const (
	KindNone = ""
	KindID   = "id"
	KindTime = "time"
)

// Mark là watermark của một resource: cursor (ID hoặc timestamp tùy
// Kind) cộng với ETag đã cache của trang đầu.
type Mark struct {
	Kind string
	ID   int64
	At   time.Time
	ETag string
}

func (m Mark) IsZero() bool {
	return m.Kind == KindNone && m.ETag == ""
}

// Newer báo mark khác có cursor mới hơn mark hiện tại không. Mark rỗng
// thua mọi mark có cursor.
func (m Mark) Newer(other Mark) bool {
	if other.Kind == KindNone {
		return false
	}
	if m.Kind == KindNone {
		return true
	}
	switch m.Kind {
	case KindID:
		return other.ID > m.ID
	default:
		return other.At.After(m.At)
	}
}

type Store interface {
	// Get trả về mark hiện tại; found == false khi chưa từng commit.
	Get(ctx context.Context, repoKey, resource string) (Mark, bool, error)

	// Commit ghi mark mới. Cursor không bao giờ lùi: mark cũ mới hơn thì
	// giữ nguyên cursor cũ. ETag rỗng không ghi đè ETag cũ.
	Commit(ctx context.Context, repoKey, resource string, mark Mark) error
}
