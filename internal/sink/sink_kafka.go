package sink

import (
	"context"
	"sync"
	"time"

	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/model"
	"github.com/deadbird/kpi-crawler/pkg/kafka"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

// KafkaSink đẩy item mới vào Kafka để consumer ghi xuống MySQL. Dedup
// trong một lần chạy dùng seen map in-process; dedup giữa các lần chạy
// vẫn dựa vào unique index ở phía consumer. Các truy vấn đọc
// (PrimaryKeys, NewestActivity) được ủy quyền cho store đứng sau vì
// Kafka không trả lời được.
type KafkaSink struct {
	Logger   log.Logger
	producer *kafka.Producer
	store    Sink

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewKafkaSink(logger log.Logger, producer *kafka.Producer, store Sink) *KafkaSink {
	return &KafkaSink{
		Logger:   logger,
		producer: producer,
		store:    store,
		seen:     make(map[string]struct{}),
	}
}

func (s *KafkaSink) Upsert(ctx context.Context, repoKey, resource string, item githubapi.Item) (Result, error) {
	dedupKey := repoKey + "|" + resource + "|" + item.Key

	s.mu.Lock()
	_, dup := s.seen[dedupKey]
	s.mu.Unlock()
	if dup {
		return AlreadyPresent, nil
	}

	msg := model.RawItemMessage{
		RepoName:   repoKey,
		Resource:   resource,
		NaturalKey: item.Key,
		ActivityAt: item.At,
		Raw:        item.Raw,
	}
	if err := s.producer.Publish(ctx, resource, msg); err != nil {
		return AlreadyPresent, err
	}

	s.mu.Lock()
	s.seen[dedupKey] = struct{}{}
	s.mu.Unlock()
	return Inserted, nil
}

func (s *KafkaSink) PrimaryKeys(ctx context.Context, repoKey, resource string) ([]string, error) {
	return s.store.PrimaryKeys(ctx, repoKey, resource)
}

func (s *KafkaSink) NewestActivity(ctx context.Context, repoKey string) (time.Time, error) {
	return s.store.NewestActivity(ctx, repoKey)
}

var _ Sink = (*KafkaSink)(nil)
