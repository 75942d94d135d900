package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/model"
	"github.com/deadbird/kpi-crawler/internal/sink"
	"github.com/deadbird/kpi-crawler/pkg/db"
	"github.com/deadbird/kpi-crawler/pkg/kafka"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

// Consumer đọc topic raw-items và ghi item xuống MySQL theo batch. Key
// của message là resource name nên mỗi resource đăng ký một handler.
func main() {
	loader, _ := cfg.NewViperLoader()
	logger, _ := log.NewLogrusLogger()

	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mysql, _ := db.NewMysql(config)
	if err := mysql.Migrate(model.All()...); err != nil {
		logger.Error(ctx, "Failed to migrate database: %v", err)
		os.Exit(1)
	}
	mysqlSink := sink.NewMysqlSink(logger, mysql)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	consumer := kafka.NewConsumer(config, logger, config.Kafka.TopicRawItems, config.Kafka.ConsumerGroup)

	batchSize := 100
	batchTimeout := 5 * time.Second
	messages := make(chan model.RawItemMessage, batchSize*2)

	go processBatches(ctx, messages, batchSize, batchTimeout, logger, mysqlSink)

	resources := []string{
		sink.ResourceStars, sink.ResourceForks, sink.ResourceWatchers,
		sink.ResourceIssues, sink.ResourcePulls,
		sink.ResourceIssueComments, sink.ResourceIssueEvents, sink.ResourceIssueReactions,
		sink.ResourceReleases, sink.ResourceCommits,
	}
	for _, resource := range resources {
		consumer.RegisterHandler(resource, func(data []byte) error {
			var msg model.RawItemMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return fmt.Errorf("failed to unmarshal raw item: %w", err)
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error(ctx, "Consumer error: %v", err)
		}
	}()
	logger.Info(ctx, "Raw item consumer started")

	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()
}

func processBatches(ctx context.Context, messages <-chan model.RawItemMessage, batchSize int,
	batchTimeout time.Duration, logger log.Logger, mysqlSink *sink.MysqlSink) {

	var batch []model.RawItemMessage
	timer := time.NewTimer(batchTimeout)

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				persistBatch(context.Background(), batch, logger, mysqlSink)
			}
			return

		case msg := <-messages:
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				persistBatch(ctx, batch, logger, mysqlSink)
				batch = nil
				timer.Reset(batchTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				persistBatch(ctx, batch, logger, mysqlSink)
				batch = nil
			}
			timer.Reset(batchTimeout)
		}
	}
}

func persistBatch(ctx context.Context, batch []model.RawItemMessage, logger log.Logger, mysqlSink *sink.MysqlSink) {
	logger.Info(ctx, "Persisting batch of %d items", len(batch))

	saved := 0
	for _, msg := range batch {
		item := githubapi.Item{
			Key: msg.NaturalKey,
			At:  msg.ActivityAt,
			Raw: msg.Raw,
		}
		if id, err := strconv.ParseInt(msg.NaturalKey, 10, 64); err == nil {
			item.ID = id
		}
		if _, err := mysqlSink.Upsert(ctx, msg.RepoName, msg.Resource, item); err != nil {
			logger.Error(ctx, "Failed to persist %s item %s: %v", msg.Resource, msg.NaturalKey, err)
			continue
		}
		saved++
	}
	logger.Info(ctx, "Persisted %d/%d items", saved, len(batch))
}
