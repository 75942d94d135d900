// Package tokenpool quản lý danh sách GitHub token và quota còn lại của
// từng token. Pool xoay vòng token khi token hiện tại gần chạm giới hạn
// và ngủ đến thời điểm reset sớm nhất khi tất cả token đều cạn quota.
package tokenpool

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/deadbird/kpi-crawler/pkg/log"
)

const (
	// Biên an toàn cộng thêm sau thời điểm reset của GitHub.
	resetMargin = 30 * time.Second
	// Thời gian ngủ khi không biết thời điểm reset của bất kỳ token nào.
	fallbackSleep = time.Hour
)

type tokenState struct {
	remaining int
	resetAt   time.Time
	known     bool
}

type Pool struct {
	mu           sync.Mutex
	tokens       []string
	states       []tokenState
	current      int
	lowWaterMark int
	fallback     time.Duration
	logger       log.Logger

	// sleepFn và nowFn có thể thay thế trong test.
	sleepFn func(ctx context.Context, d time.Duration)
	nowFn   func() time.Time
}

// NewPool tạo pool với danh sách token. Danh sách rỗng vẫn hợp lệ: pool
// hoạt động như một pool ẩn danh, Current trả về chuỗi rỗng và mọi thao
// tác quota đều là no-op.
func NewPool(tokens []string, lowWaterMark int, logger log.Logger) *Pool {
	if lowWaterMark <= 0 {
		lowWaterMark = 5
	}
	return &Pool{
		tokens:       tokens,
		states:       make([]tokenState, len(tokens)),
		lowWaterMark: lowWaterMark,
		fallback:     fallbackSleep,
		logger:       logger,
		sleepFn:      sleepWithContext,
		nowFn:        time.Now,
	}
}

// SetFallbackSleep đổi thời gian ngủ mặc định khi không token nào có
// thời điểm reset đã biết.
func (p *Pool) SetFallbackSleep(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d > 0 {
		p.fallback = d
	}
}

// Current trả về token đang hoạt động, chuỗi rỗng nếu pool không có token.
func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) == 0 {
		return ""
	}
	return p.tokens[p.current]
}

// Size trả về số token được cấu hình.
func (p *Pool) Size() int {
	return len(p.tokens)
}

// Observe cập nhật quota của token hiện tại từ header X-RateLimit-* của
// response. Header không parse được thì giữ nguyên trạng thái cũ.
func (p *Pool) Observe(headers http.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) == 0 {
		return
	}

	remaining, errRem := strconv.Atoi(headers.Get("X-RateLimit-Remaining"))
	resetTs, errRst := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)
	if errRem != nil || errRst != nil {
		return
	}

	p.states[p.current] = tokenState{
		remaining: remaining,
		resetAt:   time.Unix(resetTs, 0),
		known:     true,
	}
}

// Rotate chuyển sang token tiếp theo theo round-robin và trả về true nếu
// token hiện hoạt thực sự thay đổi. Pool một token là no-op.
func (p *Pool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) <= 1 {
		return false
	}
	old := p.current
	p.current = (p.current + 1) % len(p.tokens)
	p.logger.Info(context.Background(), "Rotated token from index %d to %d", old, p.current)
	return p.current != old
}

// NearLimit báo token hiện tại đã chạm ngưỡng low-water-mark chưa.
func (p *Pool) NearLimit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) == 0 {
		return false
	}
	st := p.states[p.current]
	return st.known && st.remaining < p.lowWaterMark
}

// Exhausted là true khi mọi token đều được quan sát và đều dưới ngưỡng.
// Token chưa từng có số liệu được coi là còn quota.
func (p *Pool) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) == 0 {
		return false
	}
	for _, st := range p.states {
		if !st.known || st.remaining >= p.lowWaterMark {
			return false
		}
	}
	return true
}

// SleepUntilEarliestReset chặn đến thời điểm reset sớm nhất trong pool
// cộng thêm biên an toàn. Không biết thời điểm reset nào thì ngủ một
// khoảng cố định. Context cancel sẽ cắt ngắn giấc ngủ.
func (p *Pool) SleepUntilEarliestReset(ctx context.Context) {
	p.mu.Lock()
	var earliest time.Time
	for _, st := range p.states {
		if st.known && !st.resetAt.IsZero() {
			if earliest.IsZero() || st.resetAt.Before(earliest) {
				earliest = st.resetAt
			}
		}
	}
	now := p.nowFn()
	sleepFn := p.sleepFn
	fallback := p.fallback
	p.mu.Unlock()

	if earliest.IsZero() {
		p.logger.Warn(ctx, "No known reset time for any token, sleeping %v", fallback)
		sleepFn(ctx, fallback)
		return
	}

	delta := earliest.Sub(now) + resetMargin
	if delta <= 0 {
		p.logger.Info(ctx, "Earliest token reset is already in the past, not sleeping")
		return
	}
	p.logger.Warn(ctx, "All tokens near quota limit, sleeping %v until earliest reset at %s",
		delta.Round(time.Second), earliest.Format(time.RFC3339))
	sleepFn(ctx, delta)
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
