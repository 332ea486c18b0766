package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/tonsurance/hedgeplane/internal/product"
)

const (
	readModelBridgeHealthPrefix = "readmodel:bridge_health:"
	readModelRiskSnapshotKey    = "readmodel:risk_snapshot"
	readModelTranchesKey        = "readmodel:tranches"
)

// RedisReadModelStore persists the monitoring loops' latest computed state
// as JSON blobs in Redis, the same client the teacher already uses for its
// URL-repository cache layer (internal/store/redis_cache.go), generalized
// here from per-field HSET entries to whole-struct JSON values because the
// monitoring read model is nested (alerts, rankings) rather than flat.
type RedisReadModelStore struct {
	client *redis.Client
}

// NewRedisReadModelStore builds a RedisReadModelStore.
func NewRedisReadModelStore(client *redis.Client) *RedisReadModelStore {
	return &RedisReadModelStore{client: client}
}

func (s *RedisReadModelStore) SaveBridgeHealth(ctx context.Context, all []*product.BridgeHealth) error {
	pipe := s.client.Pipeline()

	for _, bh := range all {
		payload, err := json.Marshal(bh)
		if err != nil {
			return err
		}

		pipe.Set(ctx, readModelBridgeHealthPrefix+bh.BridgeID, payload, 0)
	}

	_, err := pipe.Exec(ctx)

	return err
}

func (s *RedisReadModelStore) BridgeHealth(ctx context.Context, bridgeID string) (*product.BridgeHealth, error) {
	raw, err := s.client.Get(ctx, readModelBridgeHealthPrefix+bridgeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var bh product.BridgeHealth
	if err := json.Unmarshal(raw, &bh); err != nil {
		return nil, err
	}

	return &bh, nil
}

func (s *RedisReadModelStore) SaveRiskSnapshot(ctx context.Context, snap *product.RiskSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, readModelRiskSnapshotKey, payload, 0).Err()
}

func (s *RedisReadModelStore) LatestRiskSnapshot(ctx context.Context) (*product.RiskSnapshot, error) {
	raw, err := s.client.Get(ctx, readModelRiskSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var snap product.RiskSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (s *RedisReadModelStore) SaveTranches(ctx context.Context, tranches []product.TrancheInfo) error {
	payload, err := json.Marshal(tranches)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, readModelTranchesKey, payload, 0).Err()
}

func (s *RedisReadModelStore) Tranches(ctx context.Context) ([]product.TrancheInfo, error) {
	raw, err := s.client.Get(ctx, readModelTranchesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var tranches []product.TrancheInfo
	if err := json.Unmarshal(raw, &tranches); err != nil {
		return nil, err
	}

	return tranches, nil
}
