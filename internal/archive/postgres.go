package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

// PGStore wraps all archive SQL used by the API and the worker.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a Postgres archive. The schema must exist; see
// database.EnsureSchema.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const jobSummarySelect = `
	SELECT j.id, j.job_name, j.source_file, j.created_at,
		COUNT(f.id),
		COUNT(f.id) FILTER (WHERE f.status = 'delivered'),
		COUNT(f.id) FILTER (WHERE f.status = 'pending'),
		COUNT(f.id) FILTER (WHERE f.status = 'error'),
		COALESCE(SUM(f.file_size), 0)::BIGINT
	FROM jobs j LEFT JOIN job_files f ON f.job_id = j.id`

func scanSummary(row pgx.Row) (model.JobHistory, int64, error) {
	var (
		j     model.JobHistory
		bytes int64
	)
	err := row.Scan(&j.ID, &j.JobName, &j.SourceFile, &j.CreatedAt,
		&j.TotalFiles, &j.CompletedFiles, &j.PendingFiles, &j.ErrorFiles, &bytes)
	if err != nil {
		return model.JobHistory{}, 0, err
	}
	j.CreatedAt = j.CreatedAt.UTC()
	j.Status = model.DeriveJobStatus(j.PendingFiles, j.ErrorFiles)
	return j, bytes, nil
}

func (s *PGStore) List(ctx context.Context, page, pageSize int) (Page, error) {
	page, pageSize = NormalizePage(page, pageSize)
	out := Page{Jobs: []model.JobHistory{}, Page: page, PageSize: pageSize}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&out.Total); err != nil {
		return Page{}, fmt.Errorf("count jobs: %w", err)
	}
	out.TotalPages = totalPages(out.Total, pageSize)

	rows, err := s.pool.Query(ctx, jobSummarySelect+`
		GROUP BY j.id ORDER BY j.created_at DESC, j.id
		LIMIT $1 OFFSET $2`, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		j, _, err := scanSummary(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan job: %w", err)
		}
		out.Jobs = append(out.Jobs, j)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

func (s *PGStore) Get(ctx context.Context, id string, filter StatusFilter) (model.JobHistory, error) {
	j, _, err := scanSummary(s.pool.QueryRow(ctx, jobSummarySelect+`
		WHERE j.id = $1 GROUP BY j.id`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.JobHistory{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return model.JobHistory{}, fmt.Errorf("select job: %w", err)
	}

	files, err := s.files(ctx, `WHERE job_id = $1 ORDER BY position`, id)
	if err != nil {
		return model.JobHistory{}, err
	}
	j.Files = []model.JobFile{}
	for _, f := range files {
		if filter.Keep(f.Status) {
			j.Files = append(j.Files, f)
		}
	}
	return j, nil
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = MaxPageSize
	}
	rows, err := s.pool.Query(ctx, jobSummarySelect+`
		GROUP BY j.id ORDER BY j.created_at DESC, j.id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	defer rows.Close()
	var out []model.Job
	for rows.Next() {
		j, bytes, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, RecentJob(j, bytes))
	}
	return out, rows.Err()
}

// Record inserts the job and its files in one transaction.
func (s *PGStore) Record(ctx context.Context, job model.JobHistory) error {
	if len(job.Files) == 0 {
		return ErrEmptyJob
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO jobs (id, job_name, source_file, created_at)
		VALUES ($1,$2,$3,$4)
	`, job.ID, job.JobName, job.SourceFile, job.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	batch := &pgx.Batch{}
	for i, f := range job.Files {
		batch.Queue(`
			INSERT INTO job_files (id, job_id, position, file_name, file_size, file_type, status,
				distribution_method, recipient, error_message, processed_at, delivered_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, f.ID, job.ID, i, f.FileName, f.FileSize, f.FileType, f.Status,
			f.DistributionMethod, f.Recipient, nullString(f.ErrorMessage), f.ProcessedAt, f.DeliveredAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert job files: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateFile(ctx context.Context, jobID, fileID string, status model.DeliveryStatus, errMsg string, at time.Time) error {
	var f model.JobFile
	applyDelivery(&f, status, errMsg, at.UTC())
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_files
		SET status = $1,
			error_message = $2,
			processed_at = COALESCE($3, processed_at),
			delivered_at = $4
		WHERE job_id = $5 AND id = $6
	`, f.Status, nullString(f.ErrorMessage), f.ProcessedAt, f.DeliveredAt, jobID, fileID)
	if err != nil {
		return fmt.Errorf("update job file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrFileNotFound, jobID, fileID)
	}
	return nil
}

func (s *PGStore) AllFiles(ctx context.Context) ([]model.JobFile, error) {
	return s.files(ctx, `ORDER BY job_id, position`)
}

func (s *PGStore) files(ctx context.Context, tail string, args ...any) ([]model.JobFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, file_name, file_size, file_type, status, distribution_method,
			recipient, error_message, processed_at, delivered_at
		FROM job_files `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("select job files: %w", err)
	}
	defer rows.Close()

	var out []model.JobFile
	for rows.Next() {
		var (
			f        model.JobFile
			errorMsg sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.JobID, &f.FileName, &f.FileSize, &f.FileType, &f.Status,
			&f.DistributionMethod, &f.Recipient, &errorMsg, &f.ProcessedAt, &f.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan job file: %w", err)
		}
		if errorMsg.Valid {
			f.ErrorMessage = errorMsg.String
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select job files: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
