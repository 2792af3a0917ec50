package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartcity/intersection/internal/domain"
)

// PostgresRepository implements domain.TimingRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetTimingPlan loads the timing plan of an intersection
func (r *PostgresRepository) GetTimingPlan(ctx context.Context, intersectionID string) (domain.TimingPlan, error) {
	query := `
		SELECT base_green_ms, emergency_green_ms, yellow_ms,
			   min_green_ms, max_green_ms, demand_basis, denylist
		FROM timing_plans
		WHERE intersection_id = $1
	`

	var (
		baseMs, emergencyMs, yellowMs, minMs, maxMs int64
		basis                                       string
		denylist                                    []string
	)
	err := r.pool.QueryRow(ctx, query, intersectionID).Scan(
		&baseMs, &emergencyMs, &yellowMs, &minMs, &maxMs, &basis, &denylist,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TimingPlan{}, fmt.Errorf("postgres: intersection %q: %w", intersectionID, domain.ErrPlanNotFound)
	}
	if err != nil {
		return domain.TimingPlan{}, fmt.Errorf("postgres: failed to query timing plan: %w", err)
	}

	plan := domain.TimingPlan{
		IntersectionID: intersectionID,
		BaseGreen:      time.Duration(baseMs) * time.Millisecond,
		EmergencyGreen: time.Duration(emergencyMs) * time.Millisecond,
		YellowDuration: time.Duration(yellowMs) * time.Millisecond,
		MinGreen:       time.Duration(minMs) * time.Millisecond,
		MaxGreen:       time.Duration(maxMs) * time.Millisecond,
		DemandBasis:    domain.DemandBasis(basis),
		Denylist:       denylist,
	}
	if err := plan.Validate(); err != nil {
		return domain.TimingPlan{}, fmt.Errorf("postgres: intersection %q: %w", intersectionID, err)
	}

	return plan, nil
}

// GetClassLabels loads the class table of a detection model
func (r *PostgresRepository) GetClassLabels(ctx context.Context, model string) (map[int]string, error) {
	query := `
		SELECT class_id, label
		FROM class_labels
		WHERE model = $1
		ORDER BY class_id
	`

	rows, err := r.pool.Query(ctx, query, model)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query class labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[int]string)
	for rows.Next() {
		var (
			id    int
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan class label row: %w", err)
		}
		labels[id] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read class labels: %w", err)
	}

	return labels, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
