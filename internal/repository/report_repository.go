package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository stores generated reports. The whole report is kept as JSONB;
// period columns exist for the unique key and lookups.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Upsert stores a report, replacing the previous one for the same period
func (r *ReportRepository) Upsert(ctx context.Context, rep *model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	query := `
		INSERT INTO reports (period_type, period_start, period_end, data, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (period_type, period_start)
		DO UPDATE SET period_end = EXCLUDED.period_end, data = EXCLUDED.data, generated_at = EXCLUDED.generated_at
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query, rep.PeriodType, rep.PeriodStart, rep.PeriodEnd, data, rep.GeneratedAt).Scan(&rep.ID)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}

	return nil
}

// Get returns the stored report for a period or nil
func (r *ReportRepository) Get(ctx context.Context, pt model.PeriodType, start time.Time) (*model.Report, error) {
	query := `SELECT id, data FROM reports WHERE period_type = $1 AND period_start = $2`

	rep, err := scanReport(r.pool.QueryRow(ctx, query, pt, start))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	return rep, nil
}

// List returns the latest stored reports of a type, newest first
func (r *ReportRepository) List(ctx context.Context, pt model.PeriodType, limit int) ([]*model.Report, error) {
	query := `
		SELECT id, data FROM reports
		WHERE period_type = $1
		ORDER BY period_start DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pt, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	return reports, nil
}

func scanReport(row pgx.Row) (*model.Report, error) {
	var (
		id   int64
		data []byte
	)
	if err := row.Scan(&id, &data); err != nil {
		return nil, err
	}

	var rep model.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	rep.ID = id

	return &rep, nil
}
