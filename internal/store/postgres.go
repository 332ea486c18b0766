package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tonsurance/hedgeplane/internal/product"
	"github.com/tonsurance/hedgeplane/internal/security"
)

// PostgresPoolRepository hydrates one in-memory product.UnifiedPool from
// Postgres at construction time and hands back that same pointer on every
// GetPool call (see DESIGN.md's Open Question decision on pool persistence):
// the pool is the single mutex-guarded writer for the whole process, so it
// is bootstrapped from the database once rather than reconstructed per call.
type PostgresPoolRepository struct {
	pool *product.UnifiedPool
}

// NewPostgresPoolRepository loads the starting capital and every active
// policy from Postgres and builds the process's one UnifiedPool.
func NewPostgresPoolRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresPoolRepository, error) {
	var capitalCents int64

	err := pool.QueryRow(ctx, `SELECT total_capital_cents FROM pool_capital WHERE id = 1`).Scan(&capitalCents)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	unified := product.NewUnifiedPool(capitalCents)

	rows, err := pool.Query(ctx, `
		SELECT id, holder, beneficiary, coverage_kind, chain, stablecoin,
		       coverage_amount_cents, premium_paid_cents, trigger_price, floor_price,
		       start_time, expiry_time
		FROM policies
		WHERE status = 'active'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		pol := &product.Policy{}

		if err := rows.Scan(
			&pol.ID, &pol.Holder, &pol.Beneficiary,
			&pol.Key.Coverage, &pol.Key.Chain, &pol.Key.Stablecoin,
			&pol.CoverageAmountCents, &pol.PremiumPaidCents, &pol.TriggerPrice, &pol.FloorPrice,
			&pol.StartTime, &pol.ExpiryTime,
		); err != nil {
			return nil, err
		}

		unified.AddPolicy(pol)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &PostgresPoolRepository{pool: unified}, nil
}

// GetPool implements product.PoolRepository.
func (r *PostgresPoolRepository) GetPool(_ context.Context) (*product.UnifiedPool, error) {
	return r.pool, nil
}

// PostgresPolicyRepository implements claims.PolicyRepository. It returns
// the active policies of the shared PostgresPoolRepository's in-memory pool
// snapshot, without querying Postgres per cycle, and delegates pool access
// to that repository.
type PostgresPolicyRepository struct {
	db   *pgxpool.Pool
	pool *PostgresPoolRepository
}

// NewPostgresPolicyRepository builds a PostgresPolicyRepository.
func NewPostgresPolicyRepository(db *pgxpool.Pool, pool *PostgresPoolRepository) *PostgresPolicyRepository {
	return &PostgresPolicyRepository{db: db, pool: pool}
}

// ActivePolicies implements claims.PolicyRepository by reading straight off
// the shared in-memory pool, which is this process's system of record for
// policy lifecycle once bootstrapped (see PostgresPoolRepository).
func (r *PostgresPolicyRepository) ActivePolicies(ctx context.Context) ([]*product.Policy, error) {
	pool, err := r.pool.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	return pool.Snapshot().ActivePolicies, nil
}

// Pool implements claims.PolicyRepository.
func (r *PostgresPolicyRepository) Pool(ctx context.Context) (*product.UnifiedPool, error) {
	return r.pool.GetPool(ctx)
}

// PostgresTriggerStateRepository implements claims.TriggerStateRepository.
type PostgresTriggerStateRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTriggerStateRepository builds a PostgresTriggerStateRepository.
func NewPostgresTriggerStateRepository(db *pgxpool.Pool) *PostgresTriggerStateRepository {
	return &PostgresTriggerStateRepository{db: db}
}

func (r *PostgresTriggerStateRepository) Load(ctx context.Context, policyID int64) (*product.TriggerState, error) {
	state := &product.TriggerState{PolicyID: policyID}

	var firstBelow *time.Time

	err := r.db.QueryRow(ctx, `
		SELECT first_below_timestamp, samples_below, last_check_timestamp
		FROM trigger_states WHERE policy_id = $1
	`, policyID).Scan(&firstBelow, &state.SamplesBelow, &state.LastCheckTimestamp)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	state.FirstBelowTimestamp = firstBelow

	return state, nil
}

func (r *PostgresTriggerStateRepository) Save(ctx context.Context, state *product.TriggerState) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO trigger_states (policy_id, first_below_timestamp, samples_below, last_check_timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (policy_id) DO UPDATE SET
			first_below_timestamp = EXCLUDED.first_below_timestamp,
			samples_below = EXCLUDED.samples_below,
			last_check_timestamp = EXCLUDED.last_check_timestamp
	`, state.PolicyID, state.FirstBelowTimestamp, state.SamplesBelow, state.LastCheckTimestamp)

	return err
}

// PostgresPositionRepository implements hedge.PositionRepository.
type PostgresPositionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresPositionRepository builds a PostgresPositionRepository.
func NewPostgresPositionRepository(db *pgxpool.Pool) *PostgresPositionRepository {
	return &PostgresPositionRepository{db: db}
}

func (r *PostgresPositionRepository) Save(ctx context.Context, position *product.HedgePosition) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO hedge_positions (
			position_id, policy_id, coverage_kind, chain, stablecoin, venue,
			external_order_id, hedge_amount_cents, entry_price, entry_time,
			status, realized_pnl_cents, close_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (position_id) DO UPDATE SET
			external_order_id = EXCLUDED.external_order_id,
			status = EXCLUDED.status,
			realized_pnl_cents = EXCLUDED.realized_pnl_cents,
			close_time = EXCLUDED.close_time
	`,
		position.PositionID, position.PolicyID, position.Key.Coverage, position.Key.Chain, position.Key.Stablecoin,
		position.Venue, position.ExternalOrderID, position.HedgeAmountCents, position.EntryPrice, position.EntryTime,
		position.Status, position.RealizedPnLCents, position.CloseTime,
	)

	return err
}

func (r *PostgresPositionRepository) OpenPositionsForPolicy(ctx context.Context, policyID int64) ([]*product.HedgePosition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT position_id, policy_id, coverage_kind, chain, stablecoin, venue,
		       external_order_id, hedge_amount_cents, entry_price, entry_time, status
		FROM hedge_positions
		WHERE policy_id = $1 AND status = 'Open'
	`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*product.HedgePosition

	for rows.Next() {
		pos := &product.HedgePosition{}

		if err := rows.Scan(
			&pos.PositionID, &pos.PolicyID, &pos.Key.Coverage, &pos.Key.Chain, &pos.Key.Stablecoin, &pos.Venue,
			&pos.ExternalOrderID, &pos.HedgeAmountCents, &pos.EntryPrice, &pos.EntryTime, &pos.Status,
		); err != nil {
			return nil, err
		}

		out = append(out, pos)
	}

	return out, rows.Err()
}

// PostgresApiKeyRepository implements security.Repository.
type PostgresApiKeyRepository struct {
	db *pgxpool.Pool
}

// NewPostgresApiKeyRepository builds a PostgresApiKeyRepository.
func NewPostgresApiKeyRepository(db *pgxpool.Pool) *PostgresApiKeyRepository {
	return &PostgresApiKeyRepository{db: db}
}

func (r *PostgresApiKeyRepository) Lookup(ctx context.Context, keyHash string) (*security.ApiKeyInfo, error) {
	info := &security.ApiKeyInfo{KeyHash: keyHash}

	var scopes []string

	err := r.db.QueryRow(ctx, `
		SELECT name, scopes, created_at, expires_at, revoked
		FROM api_keys WHERE key_hash = $1
	`, keyHash).Scan(&info.Name, &scopes, &info.CreatedAt, &info.ExpiresAt, &info.Revoked)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	info.Scopes = make([]security.Scope, len(scopes))
	for i, s := range scopes {
		info.Scopes[i] = security.Scope(s)
	}

	return info, nil
}

// Seed upserts a bootstrap api key (spec §6/§9 config-file bootstrap list),
// leaving an already-present key's revocation state untouched.
func (r *PostgresApiKeyRepository) Seed(ctx context.Context, info *security.ApiKeyInfo) error {
	scopes := make([]string, len(info.Scopes))
	for i, s := range info.Scopes {
		scopes[i] = string(s)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO api_keys (key_hash, name, scopes, created_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, false)
		ON CONFLICT (key_hash) DO NOTHING
	`, info.KeyHash, info.Name, scopes, info.CreatedAt, info.ExpiresAt)

	return err
}
