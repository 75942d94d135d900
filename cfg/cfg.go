package cfg

import (
	"fmt"
	"time"
)

type (
	App struct {
		Name    string
		Version string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	Kafka struct {
		Brokers       []string
		TopicRawItems string
		ConsumerGroup string
	}

	// GithubApi chứa các tham số điều khiển việc gọi GitHub API:
	// danh sách token, kích thước trang và các ngưỡng retry / rate limit.
	GithubApi struct {
		ApiUrl             string
		Tokens             []string
		PageSize           int
		MaxRetryAttempts   int
		MiniRetryAttempts  int
		LowWaterMark       int
		EarlyExitRunLength int
		RateLimitResetMin  int
		ThrottleDelay      int
		RequestsPerSecond  int
	}

	// Repo là một repository cần đồng bộ. StartDate/EndDate theo định dạng
	// 2006-01-02; EndDate rỗng nghĩa là đồng bộ đến hiện tại.
	Repo struct {
		Owner     string
		Name      string
		Enabled   bool
		StartDate string
		EndDate   string
	}

	Crawl struct {
		Sink        string // "db" hoặc "kafka"
		MetricsAddr string // rỗng => không expose metrics
	}
)

type Config struct {
	App       App
	Mysql     Mysql
	Kafka     Kafka
	GithubApi GithubApi
	Repos     []Repo
	Crawl     Crawl
}

func (r Repo) Key() string {
	return r.Owner + "/" + r.Name
}

// Window trả về khoảng thời gian cần capture của repo. start/end là zero
// time nếu không được cấu hình.
func (r Repo) Window() (start, end time.Time, err error) {
	if r.StartDate != "" {
		start, err = time.Parse("2006-01-02", r.StartDate)
		if err != nil {
			return start, end, fmt.Errorf("repo %s: bad start_date %q: %w", r.Key(), r.StartDate, err)
		}
	}
	if r.EndDate != "" {
		end, err = time.Parse("2006-01-02", r.EndDate)
		if err != nil {
			return start, end, fmt.Errorf("repo %s: bad end_date %q: %w", r.Key(), r.EndDate, err)
		}
	}
	return start, end, nil
}

// FindRepo tra cứu cấu hình hiện tại của một repo theo key owner/name.
// Dùng để kiểm tra lại enabled/baseline giữa các trang khi config được
// reload trong lúc sync đang chạy.
func (c *Config) FindRepo(key string) (Repo, bool) {
	for _, r := range c.Repos {
		if r.Key() == key {
			return r, true
		}
	}
	return Repo{}, false
}
