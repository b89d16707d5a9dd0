// Package redemption is the durable, append-only ledger of consumed
// transaction references. Its single atomic insert is what makes payment
// authorization at-most-once.
package redemption

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/solgate/solgate/types"
)

// Store records redeemed transaction references. Implementations must make
// TryRedeem a single atomic insert: the at-most-once guarantee rests on it,
// not on any caller-side locking.
type Store interface {
	// IsRedeemed reports whether reference was already consumed.
	IsRedeemed(ctx context.Context, reference string) (bool, error)

	// TryRedeem inserts the reference iff absent. It returns false when
	// the reference was already present; that is not an error.
	TryRedeem(ctx context.Context, reference string, at time.Time) (bool, error)
}

// MemoryStore is a process-local Store. It holds the same contract as the
// Postgres store but does not survive restarts; suitable for tests and
// single-run tooling only.
type MemoryStore struct {
	mu       sync.Mutex
	redeemed map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{redeemed: make(map[string]time.Time)}
}

func (s *MemoryStore) IsRedeemed(_ context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.redeemed[reference]
	return ok, nil
}

func (s *MemoryStore) TryRedeem(_ context.Context, reference string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.redeemed[reference]; ok {
		return false, nil
	}

	s.redeemed[reference] = at
	return true, nil
}

// Len reports how many references have been redeemed.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redeemed)
}

// Records returns a snapshot of all redemptions, ordered by reference.
func (s *MemoryStore) Records() []types.RedemptionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.RedemptionRecord, 0, len(s.redeemed))
	for ref, at := range s.redeemed {
		out = append(out, types.RedemptionRecord{Reference: ref, RedeemedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reference < out[j].Reference })
	return out
}
