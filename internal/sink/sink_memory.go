package sink

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deadbird/kpi-crawler/internal/githubapi"
)

// MemorySink giữ item trong bộ nhớ, dùng cho test.
type MemorySink struct {
	mu    sync.Mutex
	items map[string]map[string]githubapi.Item
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		items: make(map[string]map[string]githubapi.Item),
	}
}

func (s *MemorySink) Upsert(ctx context.Context, repoKey, resource string, item githubapi.Item) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := repoKey + "|" + resource
	if s.items[bucket] == nil {
		s.items[bucket] = make(map[string]githubapi.Item)
	}
	if _, ok := s.items[bucket][item.Key]; ok {
		return AlreadyPresent, nil
	}
	s.items[bucket][item.Key] = item
	return Inserted, nil
}

func (s *MemorySink) PrimaryKeys(ctx context.Context, repoKey, resource string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.items[repoKey+"|"+resource]
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemorySink) NewestActivity(ctx context.Context, repoKey string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest time.Time
	for bucket, byKey := range s.items {
		if len(bucket) <= len(repoKey) || bucket[:len(repoKey)+1] != repoKey+"|" {
			continue
		}
		for _, item := range byKey {
			if item.At.After(newest) {
				newest = item.At
			}
		}
	}
	return newest, nil
}

// Count trả về số item đã lưu của một resource, phục vụ assert trong test.
func (s *MemorySink) Count(repoKey, resource string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[repoKey+"|"+resource])
}

var _ Sink = (*MemorySink)(nil)
