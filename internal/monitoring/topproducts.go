package monitoring

import (
	"context"
	"time"

	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

func newTopProductsLoop(d Dependencies) *loop {
	return newLoop("top_products", topProductsInterval, d.Logger, func(ctx context.Context) {
		tickTopProducts(ctx, d)
	})
}

func tickTopProducts(_ context.Context, d Dependencies) {
	snapshot := d.State.RiskSnapshot()
	if snapshot == nil {
		return
	}

	keys := make([]product.Key, len(snapshot.Top10Products))
	for i, tp := range snapshot.Top10Products {
		keys[i] = tp.Key
	}

	if !d.State.swapTopProductKeys(keys) {
		return
	}

	entries := make([]events.TopProductEntry, len(snapshot.Top10Products))
	for i, tp := range snapshot.Top10Products {
		entries[i] = events.TopProductEntry{
			CoverageKind: string(tp.Key.Coverage),
			Chain:        string(tp.Key.Chain),
			Stablecoin:   string(tp.Key.Stablecoin),
			ExposureUSD:  tp.ExposureUSDCents,
			PolicyCount:  tp.PolicyCount,
		}
	}

	evt := &events.TopProductsUpdate{
		Channel:   events.TopicTopProducts,
		Type:      "ranking_update",
		Products:  entries,
		Timestamp: time.Now(),
	}

	if err := d.Publisher.TopProductsUpdate(evt); err != nil {
		d.Logger.Error("publish top products update failed", zap.Error(err))
	}
}
