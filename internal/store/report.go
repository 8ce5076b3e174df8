package store

import (
	"context"
	"fmt"
	"time"

	"oceanwatch/internal/utils"
	"oceanwatch/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reportTableName = "oceanwatch.incident_reports"

var reportColumns = utils.StructTagValues(types.IncidentReport{})

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// CreateReport inserts a single report row. CreatedAt and UpdatedAt are
// stamped here so the returned record matches what was stored.
func (r *ReportRepository) CreateReport(ctx context.Context, report *types.IncidentReport) error {
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	query, args, err := insertReportQuery(report)
	if err != nil {
		return fmt.Errorf("failed to generate insert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

// Reports returns every report, newest first.
func (r *ReportRepository) Reports(ctx context.Context) ([]*types.IncidentReport, error) {
	query, args, err := listReportsQuery()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reports query: %w", err)
	}

	var reports []*types.IncidentReport
	err = pgxscan.Select(ctx, r.pool, &reports, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}

	return reports, nil
}

func (r *ReportRepository) ReportByID(ctx context.Context, id string) (*types.IncidentReport, error) {
	query, args, err := psql().
		Select(reportColumns...).
		From(reportTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report query: %w", err)
	}

	var report types.IncidentReport
	err = pgxscan.Get(ctx, r.pool, &report, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	return &report, nil
}

func insertReportQuery(report *types.IncidentReport) (string, []any, error) {
	return psql().
		Insert(reportTableName).
		SetMap(utils.StructToMap(report)).
		ToSql()
}

func listReportsQuery() (string, []any, error) {
	return psql().
		Select(reportColumns...).
		From(reportTableName).
		OrderBy("created_at DESC").
		ToSql()
}
