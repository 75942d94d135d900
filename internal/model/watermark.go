package model

import (
	"time"
)

// SyncWatermark lưu tiến độ đồng bộ của một (repo, resource): con trỏ
// ID hoặc timestamp cùng ETag của lần fetch gần nhất. Mỗi lần sync
// thành công chỉ được đẩy con trỏ tiến lên, không bao giờ lùi.
type SyncWatermark struct {
	Model
	RepoName   string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_watermark_key,priority:1"`
	Resource   string    `json:"resource" gorm:"column:resource;type:varchar(64);not null;uniqueIndex:idx_watermark_key,priority:2"`
	CursorKind string    `json:"cursor_kind" gorm:"column:cursor_kind;type:varchar(16)"`
	CursorID   int64     `json:"cursor_id" gorm:"column:cursor_id;default:0"`
	CursorTime time.Time `json:"cursor_time" gorm:"column:cursor_time"`
	ETag       string    `json:"etag" gorm:"column:etag;type:varchar(255)"`
}

func (w *SyncWatermark) TableName() string {
	return "sync_watermarks"
}
