package monitoring

import (
	"context"

	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

func newRiskSnapshotLoop(d Dependencies) *loop {
	return newLoop("risk_snapshot", riskSnapshotInterval, d.Logger, func(ctx context.Context) {
		tickRiskSnapshot(ctx, d)
	})
}

func tickRiskSnapshot(ctx context.Context, d Dependencies) {
	pool, err := d.PoolRepo.GetPool(ctx)
	if err != nil {
		d.Logger.Warn("pool repository lookup failed", zap.Error(err))

		return
	}

	previous := d.State.RiskSnapshot()

	snapshot, err := d.RiskMonitor.CalculateSnapshot(ctx, pool.Snapshot())
	if err != nil {
		d.Logger.Warn("risk monitor tick failed", zap.Error(err))

		return
	}

	d.State.setSnapshot(snapshot)

	if d.ReadModel != nil {
		if err := d.ReadModel.SaveRiskSnapshot(ctx, snapshot); err != nil {
			d.Logger.Warn("risk snapshot read-model save failed", zap.Error(err))
		}
	}

	for _, alert := range snapshot.BreachAlerts {
		if previous != nil && alertSeen(previous.BreachAlerts, alert) {
			continue
		}

		evt := &events.RiskAlertNew{
			Channel:      events.TopicRiskAlerts,
			Type:         "new_alert",
			AlertType:    string(alert.Kind),
			Severity:     string(alert.Severity),
			Message:      alert.Message,
			CurrentValue: alert.CurrentValue,
			LimitValue:   alert.LimitValue,
			Timestamp:    alert.Timestamp,
		}

		if err := d.Publisher.RiskAlertNew(evt); err != nil {
			d.Logger.Error("publish risk alert failed", zap.Error(err))
		}
	}
}

// alertSeen matches by message text and timestamp within 10s, per spec §4.3.
func alertSeen(previous []product.RiskAlert, candidate product.RiskAlert) bool {
	for _, p := range previous {
		if p.Message != candidate.Message {
			continue
		}

		delta := candidate.Timestamp.Sub(p.Timestamp)
		if delta < 0 {
			delta = -delta
		}

		if delta <= alertMatchWindow {
			return true
		}
	}

	return false
}
