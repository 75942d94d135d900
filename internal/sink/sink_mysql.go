package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/model"
	"github.com/deadbird/kpi-crawler/pkg/db"
	"github.com/deadbird/kpi-crawler/pkg/log"
	"gorm.io/gorm/clause"
)

// MysqlSink ghi item vào các bảng resource qua INSERT ... ON DUPLICATE
// KEY. Resource bất biến (star, fork, commit...) dùng DoNothing; issue
// và pull được update tại chỗ vì bản ghi thay đổi theo thời gian.
type MysqlSink struct {
	Logger log.Logger
	Mysql  *db.Mysql
}

func NewMysqlSink(logger log.Logger, mysql *db.Mysql) *MysqlSink {
	return &MysqlSink{
		Logger: logger,
		Mysql:  mysql,
	}
}

func (s *MysqlSink) Upsert(ctx context.Context, repoKey, resource string, item githubapi.Item) (Result, error) {
	gormDb, err := s.Mysql.Db()
	if err != nil {
		return AlreadyPresent, err
	}

	row, mutable, err := rowFor(repoKey, resource, item)
	if err != nil {
		return AlreadyPresent, err
	}

	conflict := clause.OnConflict{DoNothing: true}
	if mutable {
		conflict = clause.OnConflict{UpdateAll: true}
	}

	res := gormDb.WithContext(ctx).Clauses(conflict).Create(row)
	if res.Error != nil {
		return AlreadyPresent, fmt.Errorf("failed to upsert %s item %s: %w", resource, item.Key, res.Error)
	}
	if res.RowsAffected == 1 {
		return Inserted, nil
	}
	return AlreadyPresent, nil
}

func (s *MysqlSink) PrimaryKeys(ctx context.Context, repoKey, resource string) ([]string, error) {
	gormDb, err := s.Mysql.Db()
	if err != nil {
		return nil, err
	}

	var keys []string
	switch resource {
	case ResourceIssues:
		err = gormDb.WithContext(ctx).Model(&model.Issue{}).
			Where("repo_name = ?", repoKey).
			Order("issue_number ASC").
			Pluck("issue_number", &keys).Error
	case ResourcePulls:
		err = gormDb.WithContext(ctx).Model(&model.Pull{}).
			Where("repo_name = ?", repoKey).
			Order("pull_number ASC").
			Pluck("pull_number", &keys).Error
	default:
		return nil, fmt.Errorf("resource %s has no primary key listing", resource)
	}
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *MysqlSink) NewestActivity(ctx context.Context, repoKey string) (time.Time, error) {
	gormDb, err := s.Mysql.Db()
	if err != nil {
		return time.Time{}, err
	}

	queries := []struct {
		table  string
		column string
	}{
		{"stars", "starred_at"},
		{"forks", "forked_at"},
		{"issues", "activity_at"},
		{"pulls", "activity_at"},
		{"issue_comments", "posted_at"},
		{"commits", "committed_at"},
		{"releases", "released_at"},
	}

	var newest time.Time
	for _, q := range queries {
		var got sql.NullTime
		err := gormDb.WithContext(ctx).Table(q.table).
			Where("repo_name = ?", repoKey).
			Select("MAX(" + q.column + ")").
			Scan(&got).Error
		if err != nil {
			return time.Time{}, err
		}
		if got.Valid && got.Time.After(newest) {
			newest = got.Time
		}
	}
	return newest, nil
}

// rowFor ánh xạ một Item về bản ghi gorm của resource tương ứng.
func rowFor(repoKey, resource string, item githubapi.Item) (interface{}, bool, error) {
	raw := string(item.Raw)
	switch resource {
	case ResourceStars:
		return &model.Star{
			RepoName:  repoKey,
			UserLogin: model.TruncateString(item.Key, 255),
			StarredAt: item.At,
			RawJSON:   raw,
		}, false, nil
	case ResourceForks:
		return &model.Fork{
			RepoName: repoKey,
			ForkID:   item.ID,
			ForkedAt: item.At,
			RawJSON:  raw,
		}, false, nil
	case ResourceWatchers:
		return &model.Watcher{
			RepoName:  repoKey,
			UserLogin: model.TruncateString(item.Key, 255),
			RawJSON:   raw,
		}, false, nil
	case ResourceIssues:
		var rec githubapi.IssueRecord
		if err := json.Unmarshal(item.Raw, &rec); err != nil {
			return nil, false, fmt.Errorf("bad issue payload: %w", err)
		}
		return &model.Issue{
			RepoName:    repoKey,
			IssueNumber: rec.Number,
			OpenedAt:    rec.CreatedAt,
			ActivityAt:  item.At,
			RawJSON:     raw,
		}, true, nil
	case ResourcePulls:
		var rec githubapi.PullRecord
		if err := json.Unmarshal(item.Raw, &rec); err != nil {
			return nil, false, fmt.Errorf("bad pull payload: %w", err)
		}
		return &model.Pull{
			RepoName:   repoKey,
			PullNumber: rec.Number,
			OpenedAt:   rec.CreatedAt,
			ActivityAt: item.At,
			RawJSON:    raw,
		}, true, nil
	case ResourceIssueComments:
		return &model.IssueComment{
			RepoName:  repoKey,
			CommentID: item.ID,
			PostedAt:  item.At,
			RawJSON:   raw,
		}, false, nil
	case ResourceIssueEvents:
		return &model.IssueEvent{
			RepoName:   repoKey,
			EventID:    item.ID,
			HappenedAt: item.At,
			RawJSON:    raw,
		}, false, nil
	case ResourceIssueReactions:
		return &model.IssueReaction{
			RepoName:   repoKey,
			ReactionID: item.ID,
			ReactedAt:  item.At,
			RawJSON:    raw,
		}, false, nil
	case ResourceReleases:
		var rec githubapi.ReleaseRecord
		if err := json.Unmarshal(item.Raw, &rec); err != nil {
			return nil, false, fmt.Errorf("bad release payload: %w", err)
		}
		return &model.Release{
			RepoName:   repoKey,
			ReleaseID:  item.ID,
			TagName:    model.TruncateString(rec.TagName, 255),
			ReleasedAt: item.At,
			RawJSON:    raw,
		}, false, nil
	case ResourceCommits:
		return &model.Commit{
			RepoName:    repoKey,
			Hash:        model.TruncateString(item.Key, 64),
			CommittedAt: item.At,
			RawJSON:     raw,
		}, false, nil
	}
	return nil, false, fmt.Errorf("unknown resource %s", resource)
}

var _ Sink = (*MysqlSink)(nil)
