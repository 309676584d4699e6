package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// StagingStore is an in-memory staging area for local development and tests.
type StagingStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]stagedRow
}

type stagedRow struct {
	item       domain.StagedItem
	batchToken string // empty for cart rows
}

func NewStagingStore() *StagingStore {
	return &StagingStore{items: make(map[int64]stagedRow)}
}

func (s *StagingStore) Add(_ context.Context, item domain.StagedItem) (domain.StagedItem, error) {
	return s.insert(item, ""), nil
}

func (s *StagingStore) AddSnapshot(_ context.Context, item domain.StagedItem, batchToken string) (domain.StagedItem, error) {
	return s.insert(item, batchToken), nil
}

func (s *StagingStore) insert(item domain.StagedItem, token string) domain.StagedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.items[item.ID] = stagedRow{item: item, batchToken: token}
	return item
}

func (s *StagingStore) ListCart(_ context.Context, userID string) ([]domain.StagedItem, error) {
	return s.list(func(r stagedRow) bool {
		return r.batchToken == "" && r.item.UserID == userID
	}), nil
}

func (s *StagingStore) ListSnapshot(_ context.Context, batchToken string) ([]domain.StagedItem, error) {
	return s.list(func(r stagedRow) bool {
		return r.batchToken == batchToken
	}), nil
}

func (s *StagingStore) list(keep func(stagedRow) bool) []domain.StagedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.StagedItem
	for _, row := range s.items {
		if keep(row) {
			result = append(result, row.item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *StagingStore) Get(_ context.Context, userID string, itemID int64) (*domain.StagedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.items[itemID]
	if !ok || row.item.UserID != userID {
		return nil, ports.ErrNotFound
	}
	item := row.item
	return &item, nil
}

func (s *StagingStore) Remove(_ context.Context, userID string, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.items[itemID]
	if !ok || row.item.UserID != userID {
		return ports.ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *StagingStore) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.items {
		if row.batchToken == "" && row.item.UserID == userID {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *StagingStore) PurgeSnapshot(_ context.Context, batchToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.items {
		if row.batchToken == batchToken {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *StagingStore) ReleaseSnapshot(_ context.Context, batchToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.items {
		if row.batchToken == batchToken {
			row.batchToken = ""
			s.items[id] = row
		}
	}
	return nil
}
