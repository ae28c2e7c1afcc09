package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/database"
	"heatgrid/pkg/metrics"
	"heatgrid/pkg/telemetry"
)

// PostgresRunRepository PostgreSQL реализация хранилища прогонов
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository создаёт новый репозиторий
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// recordQuery пишет метрику одного запроса к БД
func recordQuery(operation string, start time.Time, err error) {
	if m := metrics.Get(); m != nil {
		m.RecordDBQuery(operation, err == nil, time.Since(start))
	}
}

func (r *PostgresRunRepository) Create(ctx context.Context, run *Run) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Create")
	defer span.End()
	start := time.Now()

	query := `
		INSERT INTO topology_runs (
			id, name, created_by, input_hash,
			street_count, asset_count, assets_served, assets_failed, coverage,
			trench_length, total_demand_kw, duration_ms,
			stats, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		run.ID,
		run.Name,
		run.CreatedBy,
		run.InputHash,
		run.StreetCount,
		run.AssetCount,
		run.AssetsServed,
		run.AssetsFailed,
		run.Coverage,
		run.TrenchLength,
		run.TotalDemandKW,
		run.DurationMs,
		run.Stats,
		run.Result,
	).Scan(&run.CreatedAt)
	recordQuery("run_create", start, err)

	if err != nil {
		return apperror.Wrap(err, apperror.CodeDatabaseError, "failed to create topology run")
	}

	return nil
}

func (r *PostgresRunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.GetByID")
	defer span.End()
	start := time.Now()

	query := `
		SELECT
			id, name, created_by, input_hash,
			street_count, asset_count, assets_served, assets_failed, coverage,
			trench_length, total_demand_kw, duration_ms,
			stats, result, created_at
		FROM topology_runs
		WHERE id = $1
	`

	run := &Run{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Name,
		&run.CreatedBy,
		&run.InputHash,
		&run.StreetCount,
		&run.AssetCount,
		&run.AssetsServed,
		&run.AssetsFailed,
		&run.Coverage,
		&run.TrenchLength,
		&run.TotalDemandKW,
		&run.DurationMs,
		&run.Stats,
		&run.Result,
		&run.CreatedAt,
	)
	recordQuery("run_get", start, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrRunNotFound
		}
		return nil, apperror.Wrap(err, apperror.CodeDatabaseError, "failed to get topology run")
	}

	return run, nil
}

func (r *PostgresRunRepository) List(ctx context.Context, opts *ListOptions) ([]*RunSummary, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List")
	defer span.End()

	if opts == nil {
		opts = &ListOptions{Limit: 20}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	start := time.Now()

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM topology_runs`).Scan(&total)
	if err != nil {
		recordQuery("run_list", start, err)
		return nil, 0, apperror.Wrap(err, apperror.CodeDatabaseError, "failed to count topology runs")
	}

	query := `
		SELECT
			id, name, created_by, asset_count, assets_served,
			trench_length, total_demand_kw, duration_ms, created_at
		FROM topology_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, opts.Limit, opts.Offset)
	recordQuery("run_list", start, err)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.CodeDatabaseError, "failed to list topology runs")
	}
	defer rows.Close()

	var results []*RunSummary
	for rows.Next() {
		summary := &RunSummary{}
		err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.CreatedBy,
			&summary.AssetCount,
			&summary.AssetsServed,
			&summary.TrenchLength,
			&summary.TotalDemandKW,
			&summary.DurationMs,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, 0, apperror.Wrap(err, apperror.CodeDatabaseError, "failed to scan topology run")
		}
		results = append(results, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, total, nil
}

func (r *PostgresRunRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Delete")
	defer span.End()
	start := time.Now()

	result, err := r.db.Exec(ctx, `DELETE FROM topology_runs WHERE id = $1`, id)
	recordQuery("run_delete", start, err)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeDatabaseError, "failed to delete topology run")
	}

	if result.RowsAffected() == 0 {
		return apperror.ErrRunNotFound
	}

	return nil
}

// DeleteOlderThan удаляет прогоны старше порога; используется retention-джобой
func (r *PostgresRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.DeleteOlderThan")
	defer span.End()
	start := time.Now()

	result, err := r.db.Exec(ctx, `DELETE FROM topology_runs WHERE created_at < $1`, cutoff)
	recordQuery("run_retention", start, err)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeDatabaseError, "failed to delete old topology runs")
	}

	return result.RowsAffected(), nil
}
