package cfg

import (
	"sync"
)

var (
	loader     Loader
	loaderOnce sync.Once
)

// Loader đọc config hiện hành. Load có thể được gọi lại nhiều lần trong
// một tiến trình: implementation dựa trên viper trả về bản config mới
// nhất sau mỗi lần file thay đổi.
type Loader interface {
	Load() (*Config, error)
}

// NewLoader giữ loader đầu tiên được đăng ký làm singleton cho cả
// tiến trình; các lần gọi sau trả về đúng instance đó.
func NewLoader(l Loader) (Loader, error) {
	loaderOnce.Do(func() {
		loader = l
	})
	return loader, nil
}
