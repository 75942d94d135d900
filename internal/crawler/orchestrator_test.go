package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/sink"
	"github.com/deadbird/kpi-crawler/internal/syncer"
	"github.com/deadbird/kpi-crawler/internal/tokenpool"
	"github.com/deadbird/kpi-crawler/internal/watermark"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

// fakeGithub phục vụ stargazers có dữ liệu, issues trả lỗi 404 và mọi
// endpoint còn lại trả trang rỗng.
func fakeGithub(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "4000")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))

		switch {
		case strings.HasSuffix(r.URL.Path, "/stargazers"):
			if r.URL.Query().Get("page") != "1" {
				w.Write([]byte(`[]`))
				return
			}
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"starred_at": "2025-03-01T00:00:00Z", "user": map[string]interface{}{"login": "alice", "id": 1}},
				{"starred_at": "2025-03-02T00:00:00Z", "user": map[string]interface{}{"login": "bob", "id": 2}},
			})
		case strings.HasSuffix(r.URL.Path, "/issues"):
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		default:
			w.Write([]byte(`[]`))
		}
	}))
}

func TestCrawlContainsFailuresAndSucceeds(t *testing.T) {
	srv := fakeGithub(t)
	defer srv.Close()

	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.GithubApi.ApiUrl = srv.URL
	config.GithubApi.MaxRetryAttempts = 2
	config.GithubApi.RequestsPerSecond = 1000
	config.Repos = []cfg.Repo{
		{Owner: "ni", Name: "labview-icon-editor", Enabled: true},
		{Owner: "ni", Name: "disabled-repo", Enabled: false},
	}

	logger, _ := log.NewCslLogger()
	pool := tokenpool.NewPool(nil, config.GithubApi.LowWaterMark, logger)
	memSink := sink.NewMemorySink()

	o := &Orchestrator{
		Config: config,
		Logger: logger,
		Caller: githubapi.NewCaller(logger, config, pool),
		Marks:  watermark.NewMemoryStore(),
		Sink:   memSink,
	}

	if !o.Crawl() {
		t.Fatal("Crawl() = false, a failed resource must not fail the run")
	}

	if got := memSink.Count("ni/labview-icon-editor", sink.ResourceStars); got != 2 {
		t.Errorf("stars synced = %d, want 2 despite the issues endpoint failing", got)
	}
	if got := memSink.Count("ni/disabled-repo", sink.ResourceStars); got != 0 {
		t.Errorf("disabled repo was crawled, got %d stars", got)
	}
}

func TestWindowCapturedSkipsRepo(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	logger, _ := log.NewCslLogger()

	memSink := sink.NewMemorySink()
	ctx := context.Background()
	memSink.Upsert(ctx, "ni/labview-icon-editor", sink.ResourceStars, githubapi.Item{
		Key: "alice",
		At:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	o := &Orchestrator{Config: config, Logger: logger, Sink: memSink}

	captured := o.windowCaptured(ctx, entityWithEnd(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)))
	if !captured {
		t.Error("window ending before the newest stored activity must be treated as captured")
	}

	open := o.windowCaptured(ctx, entityWithEnd(time.Time{}))
	if open {
		t.Error("repo without an end date must never be skipped")
	}
}

func entityWithEnd(end time.Time) syncer.Entity {
	return syncer.Entity{Owner: "ni", Repo: "labview-icon-editor", End: end}
}

func TestBaselineAheadSkipsRepo(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	logger, _ := log.NewCslLogger()

	memSink := sink.NewMemorySink()
	ctx := context.Background()
	memSink.Upsert(ctx, "ni/labview-icon-editor", sink.ResourceStars, githubapi.Item{
		Key: "alice",
		At:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	o := &Orchestrator{Config: config, Logger: logger, Sink: memSink}

	ahead := syncer.Entity{Owner: "ni", Repo: "labview-icon-editor",
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	if !o.baselineAhead(ctx, ahead) {
		t.Error("start date past all stored activity must skip the repo")
	}

	behind := syncer.Entity{Owner: "ni", Repo: "labview-icon-editor",
		Start: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}
	if o.baselineAhead(ctx, behind) {
		t.Error("start date inside stored history must not skip the repo")
	}

	fresh := syncer.Entity{Owner: "ni", Repo: "empty-repo",
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	if o.baselineAhead(ctx, fresh) {
		t.Error("repo without stored data must always be crawled")
	}
}
