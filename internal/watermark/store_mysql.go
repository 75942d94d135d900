package watermark

import (
	"context"
	"errors"

	"github.com/deadbird/kpi-crawler/internal/model"
	"github.com/deadbird/kpi-crawler/pkg/db"
	"github.com/deadbird/kpi-crawler/pkg/log"
	"gorm.io/gorm"
)

// MysqlStore lưu watermark trong bảng sync_watermarks.
type MysqlStore struct {
	Logger log.Logger
	Mysql  *db.Mysql
}

func NewMysqlStore(logger log.Logger, mysql *db.Mysql) *MysqlStore {
	return &MysqlStore{
		Logger: logger,
		Mysql:  mysql,
	}
}

func (s *MysqlStore) Get(ctx context.Context, repoKey, resource string) (Mark, bool, error) {
	gormDb, err := s.Mysql.Db()
	if err != nil {
		return Mark{}, false, err
	}

	var row model.SyncWatermark
	err = gormDb.WithContext(ctx).
		Where("repo_name = ? AND resource = ?", repoKey, resource).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Mark{}, false, nil
	}
	if err != nil {
		return Mark{}, false, err
	}

	return Mark{
		Kind: row.CursorKind,
		ID:   row.CursorID,
		At:   row.CursorTime,
		ETag: row.ETag,
	}, true, nil
}

func (s *MysqlStore) Commit(ctx context.Context, repoKey, resource string, mark Mark) error {
	gormDb, err := s.Mysql.Db()
	if err != nil {
		return err
	}

	return gormDb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.SyncWatermark
		err := tx.Where("repo_name = ? AND resource = ?", repoKey, resource).
			First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		merged := merge(Mark{
			Kind: row.CursorKind,
			ID:   row.CursorID,
			At:   row.CursorTime,
			ETag: row.ETag,
		}, mark)

		row.RepoName = repoKey
		row.Resource = resource
		row.CursorKind = merged.Kind
		row.CursorID = merged.ID
		row.CursorTime = merged.At
		row.ETag = merged.ETag
		return tx.Save(&row).Error
	})
}

// merge ghép mark mới vào mark cũ theo luật không-lùi: cursor chỉ tiến,
// ETag mới rỗng thì giữ ETag cũ.
func merge(old, incoming Mark) Mark {
	out := old
	if old.Newer(incoming) {
		out.Kind = incoming.Kind
		out.ID = incoming.ID
		out.At = incoming.At
	}
	if incoming.ETag != "" {
		out.ETag = incoming.ETag
	}
	return out
}
