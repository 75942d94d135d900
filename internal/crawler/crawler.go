// Gói crawler điều phối toàn bộ một lần chạy: duyệt danh sách repo
// trong config, chạy syncer cho từng resource theo thứ tự phụ thuộc và
// cô lập lỗi để một repo hỏng không kéo đổ cả lần chạy.

package crawler

import (
	"fmt"
	"time"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/sink"
	"github.com/deadbird/kpi-crawler/internal/tokenpool"
	"github.com/deadbird/kpi-crawler/internal/watermark"
	"github.com/deadbird/kpi-crawler/pkg/db"
	"github.com/deadbird/kpi-crawler/pkg/kafka"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

type Crawler interface {
	Crawl() bool
}

// New dựng crawler theo config: sink "db" ghi thẳng MySQL, sink "kafka"
// đẩy item mới qua Kafka và vẫn dùng MySQL cho các truy vấn đọc.
func New(config *cfg.Config, loader cfg.Loader, logger log.Logger, mysql *db.Mysql) (Crawler, error) {
	pool := tokenpool.NewPool(config.GithubApi.Tokens, config.GithubApi.LowWaterMark, logger)
	pool.SetFallbackSleep(time.Duration(config.GithubApi.RateLimitResetMin) * time.Minute)
	caller := githubapi.NewCaller(logger, config, pool)
	marks := watermark.NewMysqlStore(logger, mysql)
	mysqlSink := sink.NewMysqlSink(logger, mysql)

	var dest sink.Sink
	switch config.Crawl.Sink {
	case "", "db":
		dest = mysqlSink
	case "kafka":
		producer := kafka.NewProducer(config, logger, config.Kafka.TopicRawItems)
		dest = sink.NewKafkaSink(logger, producer, mysqlSink)
	default:
		return nil, fmt.Errorf("unknown sink %q", config.Crawl.Sink)
	}

	return &Orchestrator{
		Config: config,
		Loader: loader,
		Logger: logger,
		Caller: caller,
		Marks:  marks,
		Sink:   dest,
	}, nil
}
