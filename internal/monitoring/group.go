package monitoring

import (
	"context"

	"github.com/tonsurance/hedgeplane/internal/messaging"
)

// Group bundles the five background loops under the same
// messaging.Runnable lifecycle the rest of the module uses for long-running
// components, so it can be registered alongside the consumer group.
type Group struct {
	loops []messaging.Runnable
}

// NewGroup constructs a Group with all five signal loops wired.
func NewGroup(deps Dependencies) *Group {
	return &Group{
		loops: []messaging.Runnable{
			newBridgeHealthLoop(deps),
			newRiskSnapshotLoop(deps),
			newTopProductsLoop(deps),
			newTrancheAPYLoop(deps),
			newBridgeTransactionsLoop(deps),
		},
	}
}

// Start launches every loop; a failure in one tears down the loops already
// started.
func (g *Group) Start(ctx context.Context) error {
	for i, l := range g.loops {
		if err := l.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.loops[j].Shutdown()
			}

			return err
		}
	}

	return nil
}

// Shutdown stops every loop, collecting the first error encountered.
func (g *Group) Shutdown() error {
	var firstErr error

	for _, l := range g.loops {
		if err := l.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
