package watermark

import (
	"context"
	"sync"
)

// MemoryStore giữ watermark trong bộ nhớ, dùng cho test.
type MemoryStore struct {
	mu    sync.Mutex
	marks map[string]Mark
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		marks: make(map[string]Mark),
	}
}

func (s *MemoryStore) Get(ctx context.Context, repoKey, resource string) (Mark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.marks[repoKey+"|"+resource]
	return mark, ok, nil
}

func (s *MemoryStore) Commit(ctx context.Context, repoKey, resource string, mark Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repoKey + "|" + resource
	s.marks[key] = merge(s.marks[key], mark)
	return nil
}
