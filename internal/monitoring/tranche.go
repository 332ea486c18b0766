package monitoring

import (
	"context"
	"time"

	"github.com/tonsurance/hedgeplane/internal/events"
	"go.uber.org/zap"
)

func newTrancheAPYLoop(d Dependencies) *loop {
	return newLoop("tranche_apy", trancheAPYInterval, d.Logger, func(ctx context.Context) {
		tickTrancheAPY(ctx, d)
	})
}

func tickTrancheAPY(ctx context.Context, d Dependencies) {
	tranches, err := d.UtilizationTracker.GetAllUtilizations(ctx)
	if err != nil {
		d.Logger.Warn("utilization tracker tick failed", zap.Error(err))

		return
	}

	d.State.setTranches(tranches)

	if d.ReadModel != nil {
		if err := d.ReadModel.SaveTranches(ctx, tranches); err != nil {
			d.Logger.Warn("tranche read-model save failed", zap.Error(err))
		}
	}

	entries := make([]events.TrancheAPYEntry, len(tranches))
	for i, t := range tranches {
		entries[i] = events.TrancheAPYEntry{
			TrancheID:   t.TrancheID,
			APY:         t.APY,
			Utilization: t.Utilization,
			LastUpdated: t.LastUpdated,
		}
	}

	evt := &events.TrancheAPYUpdate{
		Channel:   events.TopicTrancheAPY,
		Type:      "apy_update",
		Tranches:  entries,
		Timestamp: time.Now(),
	}

	if err := d.Publisher.TrancheAPYUpdate(evt); err != nil {
		d.Logger.Error("publish tranche APY update failed", zap.Error(err))
	}
}
