package githubapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/tokenpool"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

func testConfig() *cfg.Config {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.GithubApi.MaxRetryAttempts = 3
	config.GithubApi.RequestsPerSecond = 1000
	config.GithubApi.ThrottleDelay = 1
	return config
}

func newTestCaller(t *testing.T, config *cfg.Config, tokens []string) *Caller {
	t.Helper()
	logger, _ := log.NewCslLogger()
	pool := tokenpool.NewPool(tokens, config.GithubApi.LowWaterMark, logger)
	c := NewCaller(logger, config, pool)
	c.transientDelay = time.Millisecond
	c.miniRetryDelay = time.Millisecond
	return c
}

func setQuota(w http.ResponseWriter, remaining int) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

func TestFetchSuccess(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		setQuota(w, 4999)
		w.Header().Set("ETag", `"abc123"`)
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), []string{"tok-a"})
	resp, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL, Params: map[string]string{"page": "1"}})
	if err != nil || outcome != OutcomeSuccess {
		t.Fatalf("outcome=%v err=%v, want success", outcome, err)
	}
	if string(resp.Body) != `[{"id":1}]` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if resp.ETag != `"abc123"` {
		t.Fatalf("etag %q not captured", resp.ETag)
	}
	if gotAuth != "token tok-a" {
		t.Fatalf("authorization header %q, want token tok-a", gotAuth)
	}
	if gotAccept != "application/vnd.github.v3+json" {
		t.Fatalf("accept header %q", gotAccept)
	}
}

func TestFetchNotModified(t *testing.T) {
	var gotETag string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotETag = r.Header.Get("If-None-Match")
		setQuota(w, 4000)
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), nil)
	_, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL, ETag: `"cached"`})
	if err != nil || outcome != OutcomeNotModified {
		t.Fatalf("outcome=%v err=%v, want not modified", outcome, err)
	}
	if gotETag != `"cached"` {
		t.Fatalf("conditional header %q, want cached etag", gotETag)
	}
}

func TestFetchPermanentErrorNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setQuota(w, 4000)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), nil)
	_, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if outcome != OutcomePermanent || err == nil {
		t.Fatalf("outcome=%v err=%v, want permanent error", outcome, err)
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried, server saw %d calls", calls)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setQuota(w, 4000)
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), nil)
	_, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if err != nil || outcome != OutcomeSuccess {
		t.Fatalf("outcome=%v err=%v, want success after retries", outcome, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestFetchGivesUpAfterRetryBudget(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setQuota(w, 4000)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), nil)
	_, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if outcome != OutcomeTransient || err == nil {
		t.Fatalf("outcome=%v err=%v, want transient give-up", outcome, err)
	}
	if calls != c.Config.GithubApi.MaxRetryAttempts {
		t.Fatalf("expected %d attempts, got %d", c.Config.GithubApi.MaxRetryAttempts, calls)
	}
}

func TestFetchRateLimitRotatesToken(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		if len(auths) == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		setQuota(w, 4999)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), []string{"tok-a", "tok-b"})
	_, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if err != nil || outcome != OutcomeSuccess {
		t.Fatalf("outcome=%v err=%v, want success after rotation", outcome, err)
	}
	if len(auths) != 2 || auths[0] != "token tok-a" || auths[1] != "token tok-b" {
		t.Fatalf("expected rotation from tok-a to tok-b, got %v", auths)
	}
}

// Quota chạm ngưỡng trên một response thành công cũng phải xoay token
// trước request kế tiếp.
func TestFetchRotatesWhenQuotaNearLimit(t *testing.T) {
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		setQuota(w, 3)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestCaller(t, testConfig(), []string{"tok-a", "tok-b"})
	for i := 0; i < 2; i++ {
		if _, outcome, err := c.Fetch(context.Background(), Request{URL: srv.URL}); err != nil || outcome != OutcomeSuccess {
			t.Fatalf("fetch %d: outcome=%v err=%v", i, outcome, err)
		}
	}
	if len(auths) != 2 || auths[0] != "token tok-a" || auths[1] != "token tok-b" {
		t.Fatalf("expected second request on tok-b, got %v", auths)
	}
}

// Cả pool cạn quota thì caller phải ngủ đến reset thay vì tiếp tục bắn
// request trên các token đã biết là hết: xoay đủ một vòng K token rồi
// dừng lại.
func TestFetchSleepsWhenWholePoolExhausted(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := newTestCaller(t, testConfig(), []string{"tok-a", "tok-b"})
	_, outcome, err := c.Fetch(ctx, Request{URL: srv.URL})

	if outcome != OutcomeTransient || err == nil {
		t.Fatalf("outcome=%v err=%v, want transient after the reset sleep is cut short", outcome, err)
	}
	// Một request cho mỗi token; request thứ ba chỉ được phép sau khi ngủ
	// đến thời điểm reset, mà ở đây bị context cắt ngang.
	if calls != 2 {
		t.Fatalf("server saw %d calls, want exactly one per token before sleeping", calls)
	}
}

func TestParseLinkHeader(t *testing.T) {
	testCases := []struct {
		name     string
		link     string
		wantNext string
		wantLast int
	}{
		{
			name:     "next and last",
			link:     `<https://api.github.com/repos/a/b/issues?page=2>; rel="next", <https://api.github.com/repos/a/b/issues?page=14>; rel="last"`,
			wantNext: "https://api.github.com/repos/a/b/issues?page=2",
			wantLast: 14,
		},
		{
			name: "empty header",
		},
		{
			name:     "prev only",
			link:     `<https://api.github.com/repos/a/b/issues?page=1>; rel="prev"`,
			wantNext: "",
			wantLast: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, last := parseLinkHeader(tc.link)
			if next != tc.wantNext || last != tc.wantLast {
				t.Fatalf("got (%q,%d), want (%q,%d)", next, last, tc.wantNext, tc.wantLast)
			}
		})
	}
}
