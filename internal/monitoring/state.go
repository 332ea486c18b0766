// Package monitoring runs the five background signal loops of spec §4.3
// (bridge health, risk snapshot, top products, tranche APY, bridge
// transactions), each crash-safe and publishing diffs to the WebSocket hub.
package monitoring

import (
	"sync"

	"github.com/tonsurance/hedgeplane/internal/product"
)

// SharedState is the single-writer-per-field store described in spec §3:
// "the Shared State module exclusively owns UnifiedPool, BridgeHealth
// list, and latest RiskSnapshot". Each field here is written by exactly
// one loop and read by the HTTP surface and the Hub broadcasters.
type SharedState struct {
	mu sync.RWMutex

	bridgeHealth map[string]*product.BridgeHealth
	snapshot     *product.RiskSnapshot
	tranches     []product.TrancheInfo

	prevTopProductKeys []product.Key
	prevBridgeTxStatus map[string]string
}

// NewSharedState constructs an empty SharedState.
func NewSharedState() *SharedState {
	return &SharedState{
		bridgeHealth:       make(map[string]*product.BridgeHealth),
		prevBridgeTxStatus: make(map[string]string),
	}
}

// BridgeHealthSnapshot returns a copy of the current per-bridge health map.
func (s *SharedState) BridgeHealthSnapshot() map[string]*product.BridgeHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*product.BridgeHealth, len(s.bridgeHealth))
	for k, v := range s.bridgeHealth {
		out[k] = v
	}

	return out
}

func (s *SharedState) setBridgeHealth(all []*product.BridgeHealth) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bh := range all {
		s.bridgeHealth[bh.BridgeID] = bh
	}
}

// BridgeHealth returns one bridge's current health record, if known.
func (s *SharedState) BridgeHealth(bridgeID string) (*product.BridgeHealth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bh, ok := s.bridgeHealth[bridgeID]

	return bh, ok
}

// RiskSnapshot returns the latest computed RiskSnapshot, if any.
func (s *SharedState) RiskSnapshot() *product.RiskSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot
}

func (s *SharedState) setSnapshot(snap *product.RiskSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snap
}

// Tranches returns the latest per-tranche utilization reading.
func (s *SharedState) Tranches() []product.TrancheInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.TrancheInfo, len(s.tranches))
	copy(out, s.tranches)

	return out
}

func (s *SharedState) setTranches(t []product.TrancheInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tranches = t
}

func (s *SharedState) swapTopProductKeys(keys []product.Key) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed = !sameKeyOrder(s.prevTopProductKeys, keys)
	s.prevTopProductKeys = keys

	return changed
}

func sameKeyOrder(a, b []product.Key) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func (s *SharedState) bridgeTxChanged(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.prevBridgeTxStatus[id]
	s.prevBridgeTxStatus[id] = status

	return !existed || prev != status
}
