package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

const schema = `
	CREATE TABLE IF NOT EXISTS prediction_log (
		id                 UUID PRIMARY KEY,
		request_id         TEXT,
		customer_id        BIGINT,
		model_version      TEXT NOT NULL,
		run_id             TEXT NOT NULL,
		prediction         SMALLINT NOT NULL,
		probability        DOUBLE PRECISION NOT NULL,
		confidence         DOUBLE PRECISION NOT NULL,
		decision           TEXT NOT NULL,
		probability_source TEXT NOT NULL,
		cached             BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prediction_log_created_at ON prediction_log (created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_prediction_log_model_version ON prediction_log (model_version);
`

const selectColumns = `
	SELECT id, request_id, customer_id, model_version, run_id, prediction, probability,
	       confidence, decision, probability_source, cached, created_at
	FROM prediction_log
`

type predictionLogRepo struct {
	pool *pgxpool.Pool
}

// NewPredictionLogRepository creates a new prediction audit log repository
func NewPredictionLogRepository(pool *pgxpool.Pool) ports.PredictionLogRepository {
	return &predictionLogRepo{pool: pool}
}

// EnsureSchema creates the prediction_log table when it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create prediction_log schema: %w", err)
	}
	return nil
}

func (r *predictionLogRepo) Create(ctx context.Context, p *domain.Prediction) error {
	query := `
		INSERT INTO prediction_log (id, request_id, customer_id, model_version, run_id, prediction,
		                            probability, confidence, decision, probability_source, cached, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		nullableString(p.RequestID),
		p.CustomerID,
		p.ModelVersion,
		p.RunID,
		p.Label,
		p.Probability,
		p.Confidence,
		p.Decision,
		string(p.ProbabilitySource),
		p.Cached,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction_log: %w", err)
	}
	return nil
}

func (r *predictionLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	p, err := scanPrediction(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("get prediction_log by id: %w", err)
	}
	return p, nil
}

func (r *predictionLogRepo) List(ctx context.Context, filter ports.PredictionListFilter) ([]*domain.Prediction, int, error) {
	whereClause, args := listConditions(filter)
	argIdx := len(args) + 1

	var total int
	countQuery := `SELECT COUNT(*) FROM prediction_log` + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count prediction_log: %w", err)
	}

	dataQuery := fmt.Sprintf(`%s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		selectColumns, whereClause, argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query prediction_log: %w", err)
	}
	defer rows.Close()

	var predictions []*domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan prediction_log: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate prediction_log: %w", err)
	}

	return predictions, total, nil
}

// listConditions builds the WHERE clause of a list query and its arguments.
func listConditions(filter ports.PredictionListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.ModelVersion != "" {
		args = append(args, filter.ModelVersion)
		conditions = append(conditions, fmt.Sprintf("model_version = $%d", len(args)))
	}
	if filter.Decision != "" {
		args = append(args, filter.Decision)
		conditions = append(conditions, fmt.Sprintf("decision = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanPrediction(row pgx.Row) (*domain.Prediction, error) {
	var p domain.Prediction
	var requestID *string
	var source string

	err := row.Scan(
		&p.ID, &requestID, &p.CustomerID, &p.ModelVersion, &p.RunID, &p.Label, &p.Probability,
		&p.Confidence, &p.Decision, &source, &p.Cached, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requestID != nil {
		p.RequestID = *requestID
	}
	p.ProbabilitySource = domain.ProbabilitySource(source)
	return &p, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
