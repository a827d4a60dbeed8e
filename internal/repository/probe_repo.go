package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatrelay/internal/models"
)

type ProbeRepo struct {
	pool *pgxpool.Pool
}

func NewProbeRepo(pool *pgxpool.Pool) *ProbeRepo {
	return &ProbeRepo{pool: pool}
}

func (r *ProbeRepo) Record(ctx context.Context, p *models.ProbeResult) error {
	query := `
		INSERT INTO probe_results (endpoint, model, success, status_code, error, latency_ms, probed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		p.Endpoint, p.Model, p.Success, p.StatusCode, p.Error, p.LatencyMs, p.ProbedAt,
	).Scan(&p.ID)
}

// ListRecent returns the newest probe results first.
func (r *ProbeRepo) ListRecent(ctx context.Context, limit int) ([]*models.ProbeResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, endpoint, model, success, status_code, error, latency_ms, probed_at
		FROM probe_results
		ORDER BY probed_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ProbeResult
	for rows.Next() {
		p := &models.ProbeResult{}
		if err := rows.Scan(&p.ID, &p.Endpoint, &p.Model, &p.Success, &p.StatusCode, &p.Error, &p.LatencyMs, &p.ProbedAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
