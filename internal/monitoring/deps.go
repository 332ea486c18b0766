package monitoring

import (
	"context"
	"time"

	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/messaging"
	"github.com/tonsurance/hedgeplane/internal/product"
	"go.uber.org/zap"
)

// BridgeTransaction is a pending bridge-transfer record (spec §4.3). It
// isn't one of the named §3 domain types; it's owned entirely by the
// bridge-transactions loop and its source.
type BridgeTransaction struct {
	TransactionID string
	BridgeID      string
	Status        string
	AmountCents   int64
}

// BridgeTransactionSource polls pending bridge-transaction records.
type BridgeTransactionSource interface {
	PendingTransactions(ctx context.Context) ([]BridgeTransaction, error)
}

// Dependencies bundles every collaborator and fan-out target the five
// monitoring loops need.
type Dependencies struct {
	BridgeMonitor      product.BridgeMonitor
	RiskMonitor        product.RiskMonitor
	UtilizationTracker product.UtilizationTracker
	PoolRepo           product.PoolRepository
	BridgeTxSource     BridgeTransactionSource

	// ReadModel is optional: when set, each loop persists its tick's
	// result so the HTTP process's REST surface can serve it without
	// recomputing (spec §6). A nil ReadModel simply skips persistence.
	ReadModel product.ReadModelStore

	State     *SharedState
	Publisher *EventPublisher
	Logger    *zap.Logger
}

// EventPublisher is the narrow set of typed publish functions the
// monitoring loops need onto the internal event bus (internal/events).
type EventPublisher struct {
	BridgeHealthChanged  messaging.Publish[events.BridgeHealthChanged]
	BridgeCriticalAlert  messaging.Publish[events.BridgeCriticalAlert]
	RiskAlertNew         messaging.Publish[events.RiskAlertNew]
	TopProductsUpdate    messaging.Publish[events.TopProductsUpdate]
	TrancheAPYUpdate     messaging.Publish[events.TrancheAPYUpdate]
	BridgeTransactionUpdate messaging.Publish[events.BridgeTransactionUpdate]
}

// NewEventPublisher builds an EventPublisher from a messaging.PublisherGroup.
func NewEventPublisher(group *messaging.PublisherGroup) *EventPublisher {
	pub := group.Publisher()

	return &EventPublisher{
		BridgeHealthChanged:     messaging.NewPublishFunc[events.BridgeHealthChanged](pub, events.TopicBridgeHealth),
		BridgeCriticalAlert:     messaging.NewPublishFunc[events.BridgeCriticalAlert](pub, events.TopicBridgeHealth),
		RiskAlertNew:            messaging.NewPublishFunc[events.RiskAlertNew](pub, events.TopicRiskAlerts),
		TopProductsUpdate:       messaging.NewPublishFunc[events.TopProductsUpdate](pub, events.TopicTopProducts),
		TrancheAPYUpdate:        messaging.NewPublishFunc[events.TrancheAPYUpdate](pub, events.TopicTrancheAPY),
		BridgeTransactionUpdate: messaging.NewPublishFunc[events.BridgeTransactionUpdate](pub, events.TopicBridgeTransactions),
	}
}

const (
	bridgeHealthInterval       = 60 * time.Second
	riskSnapshotInterval       = 60 * time.Second
	topProductsInterval        = 120 * time.Second
	trancheAPYInterval         = 60 * time.Second
	bridgeTransactionsInterval = 5 * time.Second

	bridgeHealthChangeThreshold = 0.05
	alertMatchWindow            = 10 * time.Second
)
