package syncer

import (
	"context"
	"fmt"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/sink"
	"github.com/deadbird/kpi-crawler/internal/watermark"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

type Status int

const (
	StatusDone Status = iota
	StatusSkipped
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}

// Summary là kết quả của một chuỗi đồng bộ: đếm item theo từng loại và
// lý do dừng. Abandoned nghĩa là một trang bị bỏ dở do lỗi transient,
// các trang đã xử lý vẫn được giữ.
type Summary struct {
	Resource   string
	Status     Status
	Stop       githubapi.StopReason
	Pages      int
	Items      int
	Accepted   int
	Duplicates int
	Dropped    int
	Abandoned  bool
	Err        error
}

// ResourceSyncer đồng bộ một resource của một repo. Loader (nếu có)
// được hỏi lại giữa các trang để phản ứng với config reload: repo bị
// disable giữa chừng thì dừng sau trang hiện tại.
type ResourceSyncer struct {
	Logger log.Logger
	Config *cfg.Config
	Loader cfg.Loader
	Caller *githubapi.Caller
	Marks  watermark.Store
	Sink   sink.Sink
	Entity Entity
	Res    Resource
}

func (s *ResourceSyncer) Run(ctx context.Context) Summary {
	sum := Summary{Resource: s.Res.Name, Status: StatusDone}
	repoKey := s.Entity.Key()

	lower, _, err := s.Marks.Get(ctx, repoKey, s.Res.Name)
	if err != nil {
		return s.abort(ctx, sum, fmt.Errorf("failed to load watermark: %w", err))
	}

	targets := []string{""}
	if s.Res.DependsOn != "" {
		targets, err = s.Sink.PrimaryKeys(ctx, repoKey, s.Res.DependsOn)
		if err != nil {
			return s.abort(ctx, sum, fmt.Errorf("failed to list %s keys: %w", s.Res.DependsOn, err))
		}
		if len(targets) == 0 {
			sum.Status = StatusSkipped
			s.Logger.Info(ctx, "Skipping %s %s: no %s synced yet", repoKey, s.Res.Name, s.Res.DependsOn)
			return sum
		}
	}

	running := lower
	lastETag := ""

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return s.abort(ctx, sum, err)
		}

		etag := ""
		if s.Res.UsesETag {
			etag = lower.ETag
		}
		baseURL := fmt.Sprintf("%s/repos/%s/%s%s",
			s.Config.GithubApi.ApiUrl, s.Entity.Owner, s.Entity.Repo, s.Res.Suffix(target))
		var params map[string]string
		if s.Res.Params != nil {
			params = s.Res.Params(s.Entity, lower)
		}
		p := githubapi.NewPaginator(s.Caller, s.Res.Style, baseURL, params, s.Res.Accept, etag)

	pageLoop:
		for !p.Done() {
			resp, outcome, err := p.Next(ctx)
			switch outcome {
			case githubapi.OutcomeSuccess:
				// xử lý bên dưới
			case githubapi.OutcomeNotModified:
				continue
			case githubapi.OutcomeTransient:
				s.Logger.Warn(ctx, "Abandoning %s %s on %s: %v", repoKey, s.Res.Name, p.Progress(), err)
				sum.Abandoned = true
				break pageLoop
			default:
				return s.abort(ctx, sum, err)
			}

			items, dropped, perr := s.Res.Parse(resp.Body)
			if perr != nil {
				return s.abort(ctx, sum, perr)
			}

			accepted := 0
			for _, item := range items {
				if !s.Entity.End.IsZero() && !item.At.IsZero() && item.At.After(s.Entity.End) {
					if s.Res.Sorted {
						p.Stop(githubapi.StopCutoff)
						break
					}
					continue
				}
				if !s.Entity.Start.IsZero() && !item.At.IsZero() && item.At.Before(s.Entity.Start) {
					continue
				}
				if !passesCursor(lower, item) {
					continue
				}

				res, uerr := s.Sink.Upsert(ctx, repoKey, s.Res.Name, item)
				if uerr != nil {
					return s.abort(ctx, sum, uerr)
				}
				if res == sink.Inserted {
					accepted++
					metrics.itemsAcceptedCounter.WithLabelValues(s.Res.Name).Inc()
				} else {
					sum.Duplicates++
					metrics.itemsDuplicateCounter.WithLabelValues(s.Res.Name).Inc()
				}
				running = advance(running, s.Res.CursorKind, item)
			}

			sum.Pages++
			sum.Items += len(items)
			sum.Accepted += accepted
			sum.Dropped += dropped
			if dropped > 0 {
				s.Logger.Warn(ctx, "Dropped %d malformed records on %s %s %s", dropped, repoKey, s.Res.Name, p.Progress())
				metrics.itemsDroppedCounter.WithLabelValues(s.Res.Name).Add(float64(dropped))
			}

			p.Advance(len(items), accepted)
			s.Logger.Info(ctx, "Synced %s %s %s: %d items, %d new, %d duplicate",
				repoKey, s.Res.Name, p.Progress(), len(items), accepted, sum.Duplicates)

			if !p.Done() && !s.refreshFromConfig() {
				s.Logger.Warn(ctx, "Repo %s disabled during sync, stopping %s", repoKey, s.Res.Name)
				p.Stop(githubapi.StopDisabled)
			}
		}

		sum.Stop = p.Reason()
		if s.Res.UsesETag {
			lastETag = p.ETag()
		}
	}

	s.commit(ctx, repoKey, running, lastETag, &sum)
	return sum
}

// commit ghi watermark một lần sau khi chuỗi trang kết thúc. Resource
// không có cursor lẫn etag (watchers) thì không có gì để lưu. Chuỗi bị
// bỏ dở trên resource không sorted thì cursor giữ nguyên để lần sau
// fetch lại vùng còn thiếu.
func (s *ResourceSyncer) commit(ctx context.Context, repoKey string, running watermark.Mark, etag string, sum *Summary) {
	if s.Res.CursorKind == watermark.KindNone && !s.Res.UsesETag {
		return
	}

	mark := running
	if sum.Abandoned && !s.Res.Sorted {
		mark = watermark.Mark{}
	}
	mark.ETag = etag
	if mark.IsZero() {
		return
	}

	if err := s.Marks.Commit(ctx, repoKey, s.Res.Name, mark); err != nil {
		s.Logger.Error(ctx, "Failed to commit watermark for %s %s: %v", repoKey, s.Res.Name, err)
		sum.Status = StatusAborted
		sum.Err = err
	}
}

func (s *ResourceSyncer) abort(ctx context.Context, sum Summary, err error) Summary {
	s.Logger.Error(ctx, "Sync %s %s aborted: %v", s.Entity.Key(), s.Res.Name, err)
	metrics.syncsAbortedCounter.WithLabelValues(s.Res.Name).Inc()
	sum.Status = StatusAborted
	sum.Err = err
	return sum
}

// refreshFromConfig đọc lại config giữa các trang. Repo bị disable hoặc
// bị gỡ khỏi config thì trả về false để dừng chuỗi; window thay đổi thì
// áp dụng ngay cho các trang còn lại. Window mới không parse được thì
// giữ window cũ.
func (s *ResourceSyncer) refreshFromConfig() bool {
	if s.Loader == nil {
		return true
	}
	config, err := s.Loader.Load()
	if err != nil || config == nil {
		return true
	}
	repo, ok := config.FindRepo(s.Entity.Key())
	if !ok || !repo.Enabled {
		return false
	}
	if start, end, werr := repo.Window(); werr == nil {
		s.Entity.Start = start
		s.Entity.End = end
	}
	return true
}

// passesCursor lọc strictly-greater-than: item đúng bằng cursor đã được
// lưu ở lần chạy trước, fetch lại chỉ là trùng lặp.
func passesCursor(lower watermark.Mark, item githubapi.Item) bool {
	switch lower.Kind {
	case watermark.KindID:
		return item.ID > lower.ID
	case watermark.KindTime:
		return item.At.After(lower.At)
	}
	return true
}

// advance đẩy running mark tới max đã quan sát. Thứ tự trả về của API
// không được tin tưởng nên luôn lấy max thay vì item cuối.
func advance(running watermark.Mark, kind string, item githubapi.Item) watermark.Mark {
	switch kind {
	case watermark.KindID:
		if running.Kind == watermark.KindNone || item.ID > running.ID {
			running.Kind = watermark.KindID
			running.ID = item.ID
		}
	case watermark.KindTime:
		if running.Kind == watermark.KindNone || item.At.After(running.At) {
			running.Kind = watermark.KindTime
			running.At = item.At
		}
	}
	return running
}
