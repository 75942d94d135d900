package crawler

import (
	"context"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/sink"
	"github.com/deadbird/kpi-crawler/internal/syncer"
	"github.com/deadbird/kpi-crawler/internal/watermark"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

// Orchestrator chạy tuần tự từng repo và từng resource. Lỗi được chứa
// trong phạm vi một resource: resource abort thì các resource còn lại
// của repo vẫn chạy, repo hỏng không chặn repo kế tiếp.
type Orchestrator struct {
	Config *cfg.Config
	Loader cfg.Loader
	Logger log.Logger
	Caller *githubapi.Caller
	Marks  watermark.Store
	Sink   sink.Sink
}

func (o *Orchestrator) Crawl() bool {
	ctx := context.Background()

	for _, repo := range o.Config.Repos {
		if !repo.Enabled {
			o.Logger.Info(ctx, "Skipping disabled repo %s", repo.Key())
			continue
		}

		start, end, err := repo.Window()
		if err != nil {
			o.Logger.Error(ctx, "Skipping repo with bad window: %v", err)
			continue
		}

		entity := syncer.Entity{
			Owner: repo.Owner,
			Repo:  repo.Name,
			Start: start,
			End:   end,
		}

		if o.baselineAhead(ctx, entity) {
			o.Logger.Info(ctx, "Skipping %s: configured start date is ahead of all stored activity", entity.Key())
			continue
		}
		if o.windowCaptured(ctx, entity) {
			o.Logger.Info(ctx, "Skipping %s: stored data already covers the configured window", entity.Key())
			continue
		}

		o.crawlRepo(ctx, entity)
	}

	return true
}

// baselineAhead báo start date của repo nằm sau mọi activity đã lưu:
// không thể có item nào trong window, bỏ qua repo như một skip do cấu
// hình chứ không phải lỗi.
func (o *Orchestrator) baselineAhead(ctx context.Context, entity syncer.Entity) bool {
	if entity.Start.IsZero() {
		return false
	}
	newest, err := o.Sink.NewestActivity(ctx, entity.Key())
	if err != nil || newest.IsZero() {
		return false
	}
	return entity.Start.After(newest)
}

// windowCaptured báo window cố định của repo đã được capture trọn vẹn
// chưa: end date đã qua và dữ liệu đã lưu chạm tới end.
func (o *Orchestrator) windowCaptured(ctx context.Context, entity syncer.Entity) bool {
	if entity.End.IsZero() {
		return false
	}
	newest, err := o.Sink.NewestActivity(ctx, entity.Key())
	if err != nil {
		o.Logger.Warn(ctx, "Failed to read newest activity for %s: %v", entity.Key(), err)
		return false
	}
	return !newest.IsZero() && !newest.Before(entity.End)
}

func (o *Orchestrator) crawlRepo(ctx context.Context, entity syncer.Entity) {
	o.Logger.Info(ctx, "Crawling repo %s", entity.Key())

	for _, res := range syncer.All() {
		s := &syncer.ResourceSyncer{
			Logger: o.Logger,
			Config: o.Config,
			Loader: o.Loader,
			Caller: o.Caller,
			Marks:  o.Marks,
			Sink:   o.Sink,
			Entity: entity,
			Res:    res,
		}

		sum := s.Run(ctx)
		switch sum.Status {
		case syncer.StatusAborted:
			o.Logger.Error(ctx, "Sync %s %s aborted after %d pages: %v",
				entity.Key(), sum.Resource, sum.Pages, sum.Err)
		case syncer.StatusSkipped:
			o.Logger.Info(ctx, "Sync %s %s skipped", entity.Key(), sum.Resource)
		default:
			o.Logger.Info(ctx, "Sync %s %s done (%s): %d pages, %d new, %d duplicate, %d dropped",
				entity.Key(), sum.Resource, sum.Stop, sum.Pages, sum.Accepted, sum.Duplicates, sum.Dropped)
		}
	}
}
