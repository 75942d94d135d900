package githubapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/limiter"
	"github.com/deadbird/kpi-crawler/internal/tokenpool"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

// Outcome phân loại kết quả cuối cùng của một lần fetch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotModified
	OutcomeRateLimited
	OutcomeTransient
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient_error"
	case OutcomePermanent:
		return "permanent_error"
	}
	return "unknown"
}

// PageResponse là một trang đã fetch thành công (hoặc 304).
type PageResponse struct {
	Status   int
	Body     []byte
	ETag     string
	NextURL  string
	LastPage int
}

// Request mô tả một lần GET. Params được append vào query string, ETag
// (nếu có) được gửi qua If-None-Match để GitHub trả 304 khi không có
// thay đổi.
type Request struct {
	URL    string
	Params map[string]string
	Accept string
	ETag   string
}

type Caller struct {
	Logger log.Logger
	Config *cfg.Config
	Pool   *tokenpool.Pool

	limiter *limiter.RateLimiter
	client  *http.Client

	// Delay giữa các lần retry, có thể rút ngắn trong test.
	transientDelay time.Duration
	miniRetryDelay time.Duration
}

func NewCaller(logger log.Logger, config *cfg.Config, pool *tokenpool.Pool) *Caller {
	return &Caller{
		Logger:  logger,
		Config:  config,
		Pool:    pool,
		limiter: limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond, config.GithubApi.ThrottleDelay),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		transientDelay: 5 * time.Second,
		miniRetryDelay: 3 * time.Second,
	}
}

// Fetch thực hiện một GET với retry hai tầng: vòng ngoài đếm tối đa
// MaxRetryAttempts lần cho toàn bộ call, vòng trong mini-retry cho lỗi
// kết nối thuần túy (reset mỗi khi nhận được response). Response 403/429
// được xử lý qua rotation/sleep và không tính vào budget retry.
func (c *Caller) Fetch(ctx context.Context, req Request) (*PageResponse, Outcome, error) {
	fullURL, err := buildURL(req.URL, req.Params)
	if err != nil {
		metrics.pagesFetchedCounter.WithLabelValues(OutcomePermanent.String()).Inc()
		return nil, OutcomePermanent, fmt.Errorf("bad request url %q: %w", req.URL, err)
	}

	maxAttempts := c.Config.GithubApi.MaxRetryAttempts
	miniAttempts := c.Config.GithubApi.MiniRetryAttempts
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.pagesFetchedCounter.WithLabelValues(OutcomeTransient.String()).Inc()
			return nil, OutcomeTransient, err
		}

		resp, err := c.doWithMiniRetry(ctx, fullURL, req, miniAttempts)
		if err != nil {
			// Mini-retry đã cạn => bỏ cả call, page này bị abandon.
			c.Logger.Warn(ctx, "Exhausted connection retries for %s: %v", fullURL, err)
			metrics.pagesFetchedCounter.WithLabelValues(OutcomeTransient.String()).Inc()
			return nil, OutcomeTransient, err
		}

		// Mọi response đều cập nhật quota của pool trước khi phân loại.
		c.Pool.Observe(resp.Header)

		switch {
		case resp.StatusCode == http.StatusOK:
			page, err := readPage(resp)
			if err != nil {
				lastErr = err
				metrics.transientRetryCounter.Inc()
				c.sleep(ctx, c.miniRetryDelay)
				continue
			}
			c.rotateIfNearLimit(ctx)
			metrics.pagesFetchedCounter.WithLabelValues(OutcomeSuccess.String()).Inc()
			return page, OutcomeSuccess, nil

		case resp.StatusCode == http.StatusNotModified:
			drainBody(resp)
			c.rotateIfNearLimit(ctx)
			metrics.pagesFetchedCounter.WithLabelValues(OutcomeNotModified.String()).Inc()
			return &PageResponse{Status: resp.StatusCode, ETag: resp.Header.Get("ETag")}, OutcomeNotModified, nil

		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
			drainBody(resp)
			metrics.rateLimitHitCounter.Inc()
			c.Logger.Warn(ctx, "HTTP %d on %s, resolving through token rotation", resp.StatusCode, fullURL)
			// Xoay token xong vẫn phải kiểm tra lại cả pool: xoay được
			// sang token kế tiếp không có nghĩa là token đó còn quota.
			if !c.Pool.Rotate() || c.Pool.Exhausted() {
				c.Pool.SleepUntilEarliestReset(ctx)
			}
			// Rate limit không tính vào budget retry.
			attempt--
			lastErr = fmt.Errorf("rate limited: HTTP %d", resp.StatusCode)
			continue

		case resp.StatusCode >= 500:
			drainBody(resp)
			c.Logger.Warn(ctx, "HTTP %d on %s, attempt %d/%d", resp.StatusCode, fullURL, attempt, maxAttempts)
			lastErr = fmt.Errorf("server error: HTTP %d", resp.StatusCode)
			metrics.transientRetryCounter.Inc()
			c.sleep(ctx, c.transientDelay)
			continue

		default:
			// 4xx còn lại là lỗi vĩnh viễn, trả về ngay không retry.
			drainBody(resp)
			metrics.pagesFetchedCounter.WithLabelValues(OutcomePermanent.String()).Inc()
			return &PageResponse{Status: resp.StatusCode}, OutcomePermanent,
				fmt.Errorf("HTTP %d on %s", resp.StatusCode, fullURL)
		}
	}

	metrics.pagesFetchedCounter.WithLabelValues(OutcomeTransient.String()).Inc()
	if lastErr == nil {
		lastErr = fmt.Errorf("exceeded %d attempts on %s", maxAttempts, fullURL)
	}
	return nil, OutcomeTransient, fmt.Errorf("exceeded retry budget on %s: %w", fullURL, lastErr)
}

// doWithMiniRetry gửi request, thử lại tối đa miniAttempts lần cho lỗi
// transport. Trả về response đầu tiên nhận được, bất kể status code.
func (c *Caller) doWithMiniRetry(ctx context.Context, fullURL string, req Request, miniAttempts int) (*http.Response, error) {
	var lastErr error
	for local := 1; local <= miniAttempts; local++ {
		c.limiter.Wait()

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}

		accept := req.Accept
		if accept == "" {
			accept = "application/vnd.github.v3+json"
		}
		httpReq.Header.Set("Accept", accept)
		if token := c.Pool.Current(); token != "" {
			httpReq.Header.Set("Authorization", fmt.Sprintf("token %s", token))
		}
		if req.ETag != "" {
			httpReq.Header.Set("If-None-Match", req.ETag)
		}

		resp, err := c.client.Do(httpReq)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.Logger.Warn(ctx, "Connection error on %s, local retry %d/%d: %v", fullURL, local, miniAttempts, err)
		metrics.transientRetryCounter.Inc()
		c.sleep(ctx, c.miniRetryDelay)
	}
	return nil, fmt.Errorf("connection failed after %d local retries: %w", miniAttempts, lastErr)
}

// rotateIfNearLimit xoay token chủ động khi quota hiện tại chạm ngưỡng,
// trước khi request kế tiếp được gửi. Pool cạn toàn bộ thì ngủ đến reset.
func (c *Caller) rotateIfNearLimit(ctx context.Context) {
	if !c.Pool.NearLimit() {
		return
	}
	if !c.Pool.Rotate() || c.Pool.Exhausted() {
		c.Pool.SleepUntilEarliestReset(ctx)
	}
}

func (c *Caller) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func readPage(resp *http.Response) (*PageResponse, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	next, last := parseLinkHeader(resp.Header.Get("Link"))
	return &PageResponse{
		Status:   resp.StatusCode,
		Body:     body,
		ETag:     resp.Header.Get("ETag"),
		NextURL:  next,
		LastPage: last,
	}, nil
}

func drainBody(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

var linkRelRe = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="([a-z]+)"`)
var lastPageRe = regexp.MustCompile(`[?&]page=(\d+)`)

// parseLinkHeader trích URL rel="next" (continuation) và số trang
// rel="last" (chỉ dùng cho progress log) từ header Link của GitHub.
func parseLinkHeader(link string) (next string, last int) {
	if link == "" {
		return "", 0
	}
	for _, m := range linkRelRe.FindAllStringSubmatch(link, -1) {
		switch m[2] {
		case "next":
			next = m[1]
		case "last":
			if pm := lastPageRe.FindStringSubmatch(m[1]); pm != nil {
				if v, err := strconv.Atoi(pm[1]); err == nil {
					last = v
				}
			}
		}
	}
	return next, last
}
