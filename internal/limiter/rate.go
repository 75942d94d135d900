package limiter

import (
	"sync"
	"time"
)

// Giới hạn số lượng request trong 1 giây ở phía client, độc lập với
// quota mà GitHub trả về qua header.
type RateLimiter struct {
	requestTimes []time.Time
	maxRequests  int
	throttle     time.Duration
	mu           sync.Mutex
}

func NewRateLimiter(maxRequests int, throttleDelayMs int) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if throttleDelayMs <= 0 {
		throttleDelayMs = 100
	}
	return &RateLimiter{
		requestTimes: make([]time.Time, 0, maxRequests),
		maxRequests:  maxRequests,
		throttle:     time.Duration(throttleDelayMs) * time.Millisecond,
	}
}

// Allow kiểm tra xem có thể thực hiện request mới hay không
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	oneSecondAgo := now.Add(-1 * time.Second)

	// Xóa các request cũ hơn 1 giây
	validTimes := make([]time.Time, 0, len(r.requestTimes))
	for _, t := range r.requestTimes {
		if t.After(oneSecondAgo) {
			validTimes = append(validTimes, t)
		}
	}
	r.requestTimes = validTimes

	if len(r.requestTimes) < r.maxRequests {
		r.requestTimes = append(r.requestTimes, now)
		return true
	}

	return false
}

// Wait chặn đến khi được phép thực hiện request tiếp theo.
func (r *RateLimiter) Wait() {
	for !r.Allow() {
		time.Sleep(r.throttle)
	}
}
