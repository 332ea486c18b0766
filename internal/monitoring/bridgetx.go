package monitoring

import (
	"context"
	"time"

	"github.com/tonsurance/hedgeplane/internal/events"
	"go.uber.org/zap"
)

func newBridgeTransactionsLoop(d Dependencies) *loop {
	return newLoop("bridge_transactions", bridgeTransactionsInterval, d.Logger, func(ctx context.Context) {
		tickBridgeTransactions(ctx, d)
	})
}

func tickBridgeTransactions(ctx context.Context, d Dependencies) {
	txs, err := d.BridgeTxSource.PendingTransactions(ctx)
	if err != nil {
		d.Logger.Warn("bridge transaction source tick failed", zap.Error(err))

		return
	}

	now := time.Now()

	for _, tx := range txs {
		if !d.State.bridgeTxChanged(tx.TransactionID, tx.Status) {
			continue
		}

		evt := &events.BridgeTransactionUpdate{
			Channel:       events.TopicBridgeTransactions,
			Type:          "status_update",
			TransactionID: tx.TransactionID,
			BridgeID:      tx.BridgeID,
			Status:        tx.Status,
			AmountCents:   tx.AmountCents,
			Timestamp:     now,
		}

		if err := d.Publisher.BridgeTransactionUpdate(evt); err != nil {
			d.Logger.Error("publish bridge transaction update failed", zap.Error(err))
		}
	}
}
