package monitoring

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

func newBridgeHealthLoop(d Dependencies) *loop {
	return newLoop("bridge_health", bridgeHealthInterval, d.Logger, func(ctx context.Context) {
		tickBridgeHealth(ctx, d)
	})
}

func tickBridgeHealth(ctx context.Context, d Dependencies) {
	previous := d.State.BridgeHealthSnapshot()

	updated, err := d.BridgeMonitor.MonitorAll(ctx, previous)
	if err != nil {
		d.Logger.Warn("bridge monitor tick failed", zap.Error(err))

		return
	}

	d.State.setBridgeHealth(updated)

	if d.ReadModel != nil {
		if err := d.ReadModel.SaveBridgeHealth(ctx, updated); err != nil {
			d.Logger.Warn("bridge health read-model save failed", zap.Error(err))
		}
	}

	now := time.Now()

	for _, bh := range updated {
		prev, existed := previous[bh.BridgeID]

		if existed && math.Abs(bh.HealthScore-prev.HealthScore) > bridgeHealthChangeThreshold {
			publishBridgeHealthChange(d, bh, prev, now)
		}

		for _, alert := range bh.Alerts {
			if alert.Resolved || alert.Severity != product.SeverityCritical {
				continue
			}

			if existed && alertPresent(prev, alert.AlertID) {
				continue
			}

			publishBridgeCriticalAlert(d, bh.BridgeID, alert, now)
		}
	}
}

func publishBridgeHealthChange(d Dependencies, bh, prev *product.BridgeHealth, now time.Time) {
	evt := &events.BridgeHealthChanged{
		Channel:         events.TopicBridgeHealth,
		Type:            "health_change",
		BridgeID:        bh.BridgeID,
		PreviousScore:   prev.HealthScore,
		CurrentScore:    bh.HealthScore,
		ExploitDetected: bh.ExploitDetected,
		Timestamp:       now,
	}

	if err := d.Publisher.BridgeHealthChanged(evt); err != nil {
		d.Logger.Error("publish bridge health change failed", zap.Error(err))
	}
}

func publishBridgeCriticalAlert(d Dependencies, bridgeID string, alert product.BridgeAlert, now time.Time) {
	evt := &events.BridgeCriticalAlert{
		Type:      "critical_alert",
		BridgeID:  bridgeID,
		AlertID:   nonEmptyOrGenerated(alert.AlertID),
		Message:   alert.Message,
		Severity:  string(product.SeverityCritical),
		Timestamp: now,
	}

	if err := d.Publisher.BridgeCriticalAlert(evt); err != nil {
		d.Logger.Error("publish bridge critical alert failed", zap.Error(err))
	}
}

func alertPresent(bh *product.BridgeHealth, alertID string) bool {
	for _, a := range bh.Alerts {
		if a.AlertID == alertID {
			return true
		}
	}

	return false
}

func nonEmptyOrGenerated(id string) string {
	if id != "" {
		return id
	}

	return uuid.NewString()
}
