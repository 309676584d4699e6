package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// FileStore tracks staged content keys without touching a real filesystem.
type FileStore struct {
	mu       sync.Mutex
	staged   map[string]struct{}
	promoted map[string]string // order code -> permanent path
}

func NewFileStore(stagedPaths ...string) *FileStore {
	s := &FileStore{
		staged:   make(map[string]struct{}),
		promoted: make(map[string]string),
	}
	for _, p := range stagedPaths {
		s.staged[p] = struct{}{}
	}
	return s
}

// Stage registers content at the given staged path.
func (s *FileStore) Stage(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[path] = struct{}{}
}

func (s *FileStore) Promote(_ context.Context, stagedPath, orderCode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staged[stagedPath]; !ok {
		if permanent, done := s.promoted[orderCode]; done {
			return permanent, nil
		}
		return "", ports.ErrContentMissing
	}
	delete(s.staged, stagedPath)
	permanent := fmt.Sprintf("orders/%s.pdf", orderCode)
	s.promoted[orderCode] = permanent
	return permanent, nil
}

// PromotedPath reports the permanent path recorded for an order code.
func (s *FileStore) PromotedPath(orderCode string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promoted[orderCode]
	return p, ok
}
