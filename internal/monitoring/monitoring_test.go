package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

type fakeBridgeMonitor struct {
	result []*product.BridgeHealth
}

func (f *fakeBridgeMonitor) MonitorAll(_ context.Context, _ map[string]*product.BridgeHealth) ([]*product.BridgeHealth, error) {
	return f.result, nil
}

type capturingEventPublisher struct {
	healthChanged []*events.BridgeHealthChanged
	criticalAlert []*events.BridgeCriticalAlert
}

func newTestDeps() (Dependencies, *capturingEventPublisher) {
	capt := &capturingEventPublisher{}

	pub := &EventPublisher{
		BridgeHealthChanged: func(e *events.BridgeHealthChanged) error {
			capt.healthChanged = append(capt.healthChanged, e)

			return nil
		},
		BridgeCriticalAlert: func(e *events.BridgeCriticalAlert) error {
			capt.criticalAlert = append(capt.criticalAlert, e)

			return nil
		},
		RiskAlertNew:            func(*events.RiskAlertNew) error { return nil },
		TopProductsUpdate:       func(*events.TopProductsUpdate) error { return nil },
		TrancheAPYUpdate:        func(*events.TrancheAPYUpdate) error { return nil },
		BridgeTransactionUpdate: func(*events.BridgeTransactionUpdate) error { return nil },
	}

	return Dependencies{
		State:     NewSharedState(),
		Publisher: pub,
		Logger:    zap.NewNop(),
	}, capt
}

func TestTickBridgeHealth_PublishesOnSignificantChange(t *testing.T) {
	d, capt := newTestDeps()

	// Seed the previous state with a 0.95 score.
	d.State.setBridgeHealth([]*product.BridgeHealth{{BridgeID: "wormhole", HealthScore: 0.95}})

	d.BridgeMonitor = &fakeBridgeMonitor{result: []*product.BridgeHealth{
		{BridgeID: "wormhole", HealthScore: 0.88},
	}}

	tickBridgeHealth(context.Background(), d)

	require.Len(t, capt.healthChanged, 1)
	assert.Equal(t, 0.95, capt.healthChanged[0].PreviousScore)
	assert.Equal(t, 0.88, capt.healthChanged[0].CurrentScore)
}

func TestTickBridgeHealth_NoPublishBelowThreshold(t *testing.T) {
	d, capt := newTestDeps()

	d.State.setBridgeHealth([]*product.BridgeHealth{{BridgeID: "wormhole", HealthScore: 0.95}})

	d.BridgeMonitor = &fakeBridgeMonitor{result: []*product.BridgeHealth{
		{BridgeID: "wormhole", HealthScore: 0.93},
	}}

	tickBridgeHealth(context.Background(), d)

	assert.Empty(t, capt.healthChanged)
}

func TestTickBridgeHealth_PublishesNewCriticalAlert(t *testing.T) {
	d, capt := newTestDeps()

	d.State.setBridgeHealth([]*product.BridgeHealth{{BridgeID: "axelar", HealthScore: 0.9}})

	d.BridgeMonitor = &fakeBridgeMonitor{result: []*product.BridgeHealth{
		{
			BridgeID:    "axelar",
			HealthScore: 0.9,
			Alerts: []product.BridgeAlert{
				{AlertID: "a1", Severity: product.SeverityCritical, Message: "exploit suspected"},
			},
		},
	}}

	tickBridgeHealth(context.Background(), d)

	require.Len(t, capt.criticalAlert, 1)
	assert.Equal(t, "a1", capt.criticalAlert[0].AlertID)
}

func TestAlertSeen_MatchesWithinTimeWindow(t *testing.T) {
	base := time.Now()
	previous := []product.RiskAlert{{Message: "LTV breach", Timestamp: base}}

	candidate := product.RiskAlert{Message: "LTV breach", Timestamp: base.Add(5 * time.Second)}
	assert.True(t, alertSeen(previous, candidate))

	farCandidate := product.RiskAlert{Message: "LTV breach", Timestamp: base.Add(30 * time.Second)}
	assert.False(t, alertSeen(previous, farCandidate))
}

func TestSharedState_BridgeTxChangedOnlyOnce(t *testing.T) {
	s := NewSharedState()

	assert.True(t, s.bridgeTxChanged("tx1", "pending"))
	assert.False(t, s.bridgeTxChanged("tx1", "pending"))
	assert.True(t, s.bridgeTxChanged("tx1", "confirmed"))
}
