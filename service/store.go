package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/Srijanomar3094/parser-server/model"
)

// ContractStore persists contract records. Implementations must
// serialize writes to the same record.
type ContractStore interface {
	Create(ctx context.Context, contract *model.Contract) error
	Update(ctx context.Context, contract *model.Contract) error
	Get(ctx context.Context, id string) (*model.Contract, error)
	// List returns records ordered by upload time descending. An empty
	// status matches all records.
	List(ctx context.Context, status model.Status, offset, limit int) ([]*model.Contract, error)
	Count(ctx context.Context, status model.Status) (int, error)
}

// MemoryStore is an in-memory contract store for development and
// tests. Readers always receive clones, so only the background parse
// mutates stored state.
type MemoryStore struct {
	mu           sync.RWMutex
	contracts    map[string]*model.Contract
	maxContracts int // 0 = unlimited
}

// NewMemoryStore creates a memory store keeping at most maxContracts
// records (oldest evicted first), or all of them when 0.
func NewMemoryStore(maxContracts int) *MemoryStore {
	if maxContracts < 0 {
		maxContracts = 0
	}
	return &MemoryStore{
		contracts:    make(map[string]*model.Contract),
		maxContracts: maxContracts,
	}
}

func (s *MemoryStore) Create(_ context.Context, contract *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[contract.ID] = contract.Clone()
	s.cleanupIfNeeded()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, contract *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[contract.ID]; !ok {
		return ErrNotFound
	}
	s.contracts[contract.ID] = contract.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contract, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return contract.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, status model.Status, offset, limit int) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matching(status)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	if offset >= len(matched) {
		return []*model.Contract{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}

	result := make([]*model.Contract, 0, end-offset)
	for _, c := range matched[offset:end] {
		result = append(result, c.Clone())
	}
	return result, nil
}

func (s *MemoryStore) Count(_ context.Context, status model.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(status)), nil
}

// matching must be called with the lock held.
func (s *MemoryStore) matching(status model.Status) []*model.Contract {
	matched := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		if status != "" && c.Status != status {
			continue
		}
		matched = append(matched, c)
	}
	return matched
}

// cleanupIfNeeded removes oldest contracts if the store exceeds
// maxContracts. Must be called with the lock held.
func (s *MemoryStore) cleanupIfNeeded() {
	if s.maxContracts <= 0 {
		return
	}
	if len(s.contracts) <= s.maxContracts {
		return
	}

	contracts := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].UploadedAt.Before(contracts[j].UploadedAt)
	})

	removeCount := len(contracts) - s.maxContracts
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old contract",
			"contract_id", contracts[i].ID,
			"uploaded_at", contracts[i].UploadedAt,
		)
		delete(s.contracts, contracts[i].ID)
	}
}
