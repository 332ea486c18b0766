package store

import (
	"context"
	"sync"

	"github.com/tonsurance/hedgeplane/internal/product"
	"github.com/tonsurance/hedgeplane/internal/security"
)

// memoryCore is the shared, mutex-protected state behind every in-memory
// repository. MemoryStore and its two Save-named adapters (HedgePositions,
// TriggerStates) all point at the same core so a write through any one of
// them is visible to the others.
type memoryCore struct {
	mu sync.RWMutex

	pool          *product.UnifiedPool
	policies      map[int64]*product.Policy
	triggerStates map[int64]*product.TriggerState
	positions     map[string]*product.HedgePosition
	apiKeys       map[string]*security.ApiKeyInfo
}

// MemoryStore is an in-memory implementation of product.PoolRepository,
// claims.PolicyRepository, and security.Repository. Its two sibling hedge-
// and claims-specific repositories (whose Save methods would otherwise
// collide on a single type) are reached via HedgePositions and
// TriggerStates. It backs unit tests and a single-process development run;
// production deployments use PostgresStore.
type MemoryStore struct {
	*memoryCore
}

// NewMemoryStore creates an in-memory store seeded with the given starting
// pool capital.
func NewMemoryStore(startingCapitalCents int64) *MemoryStore {
	return &MemoryStore{&memoryCore{
		pool:          product.NewUnifiedPool(startingCapitalCents),
		policies:      make(map[int64]*product.Policy),
		triggerStates: make(map[int64]*product.TriggerState),
		positions:     make(map[string]*product.HedgePosition),
		apiKeys:       make(map[string]*security.ApiKeyInfo),
	}}
}

// GetPool implements product.PoolRepository.
func (m *MemoryStore) GetPool(_ context.Context) (*product.UnifiedPool, error) {
	return m.pool, nil
}

// AddPolicy registers pol as active in both the policy index and the pool,
// used by seed/test setup since policy purchase itself is out of scope.
func (m *MemoryStore) AddPolicy(pol *product.Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.policies[pol.ID] = pol
	m.pool.AddPolicy(pol)
}

// ActivePolicies implements claims.PolicyRepository.
func (m *MemoryStore) ActivePolicies(_ context.Context) ([]*product.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*product.Policy, 0, len(m.policies))

	for _, p := range m.policies {
		if p.Active() {
			out = append(out, p)
		}
	}

	return out, nil
}

// Pool implements claims.PolicyRepository.
func (m *MemoryStore) Pool(_ context.Context) (*product.UnifiedPool, error) {
	return m.pool, nil
}

// Lookup implements security.Repository.
func (m *MemoryStore) Lookup(_ context.Context, keyHash string) (*security.ApiKeyInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.apiKeys[keyHash]
	if !ok {
		return nil, nil
	}

	copied := *info

	return &copied, nil
}

// PutAPIKey registers an api key, used by seed/test setup and the
// cmd/server bootstrap of an initial admin key.
func (m *MemoryStore) PutAPIKey(info *security.ApiKeyInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *info
	m.apiKeys[info.KeyHash] = &copied
}

// HedgePositions returns the hedge.PositionRepository view of this store.
func (m *MemoryStore) HedgePositions() *MemoryPositionRepository {
	return &MemoryPositionRepository{m.memoryCore}
}

// TriggerStates returns the claims.TriggerStateRepository view of this store.
func (m *MemoryStore) TriggerStates() *MemoryTriggerStateRepository {
	return &MemoryTriggerStateRepository{m.memoryCore}
}

// MemoryPositionRepository implements hedge.PositionRepository over a
// memoryCore shared with a MemoryStore.
type MemoryPositionRepository struct {
	*memoryCore
}

func (m *MemoryPositionRepository) Save(_ context.Context, position *product.HedgePosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *position
	m.positions[position.PositionID] = &copied

	return nil
}

func (m *MemoryPositionRepository) OpenPositionsForPolicy(_ context.Context, policyID int64) ([]*product.HedgePosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*product.HedgePosition

	for _, pos := range m.positions {
		if pos.PolicyID == policyID && pos.Status == product.PositionOpen {
			copied := *pos
			out = append(out, &copied)
		}
	}

	return out, nil
}

// MemoryTriggerStateRepository implements claims.TriggerStateRepository over
// a memoryCore shared with a MemoryStore.
type MemoryTriggerStateRepository struct {
	*memoryCore
}

func (m *MemoryTriggerStateRepository) Load(_ context.Context, policyID int64) (*product.TriggerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.triggerStates[policyID]
	if !ok {
		return nil, nil
	}

	copied := *state

	return &copied, nil
}

func (m *MemoryTriggerStateRepository) Save(_ context.Context, state *product.TriggerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *state
	m.triggerStates[state.PolicyID] = &copied

	return nil
}
