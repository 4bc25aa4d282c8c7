package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/models"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
)

// JobRepository implements models.Repository[*models.CopyJob] for copy-job history.
//
// Handles job CRUD with soft delete support and per-user listings.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new copy job into the database with generated ID and sequence
func (r *JobRepository) Create(job *models.CopyJob) error {
	sequence, err := NextSequence(r.db, "copy_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.SetID(shared.GenerateID())
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO copy_jobs (
			id, sequence, user_id, source_playlist_id, source_name,
			new_playlist_id, new_name, status, stage, tracks_total,
			tracks_added, cover_url, error_message, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		job.ID(),
		job.Sequence(),
		job.UserID(),
		job.SourcePlaylistID(),
		job.SourceName(),
		nullable(job.NewPlaylistID()),
		job.NewName(),
		job.Status(),
		job.Stage(),
		job.TracksTotal(),
		job.TracksAdded(),
		nullable(job.CoverURL()),
		nullable(job.ErrorMessage()),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert copy job: %w", err)
	}

	return nil
}

// Get retrieves a copy job by ID, excluding soft-deleted jobs
func (r *JobRepository) Get(id string) (*models.CopyJob, error) {
	query := selectJobs + " WHERE id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing copy job in the database
func (r *JobRepository) Update(job *models.CopyJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE copy_jobs
		SET new_playlist_id = ?, new_name = ?, status = ?, stage = ?,
			tracks_total = ?, tracks_added = ?, cover_url = ?,
			error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	res, err := r.db.Exec(query,
		nullable(job.NewPlaylistID()),
		job.NewName(),
		job.Status(),
		job.Stage(),
		job.TracksTotal(),
		job.TracksAdded(),
		nullable(job.CoverURL()),
		nullable(job.ErrorMessage()),
		job.UpdatedAt(),
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update copy job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("copy job %s not found", job.ID())
	}

	return nil
}

// Delete soft-deletes a copy job by setting its deleted_at timestamp
func (r *JobRepository) Delete(id string) error {
	query := "UPDATE copy_jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL"

	res, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete copy job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("copy job %s not found", id)
	}

	return nil
}

// List retrieves copy jobs matching the given criteria, newest first.
// Supported criteria keys: user_id, status.
func (r *JobRepository) List(criteria map[string]any) ([]*models.CopyJob, error) {
	query := selectJobs + " WHERE deleted_at IS NULL"
	var args []any

	for _, key := range []string{"user_id", "status"} {
		if value, ok := criteria[key]; ok {
			query += fmt.Sprintf(" AND %s = ?", key)
			args = append(args, value)
		}
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query copy jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.CopyJob
	for rows.Next() {
		job, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// ListRecent returns the most recent jobs for a user, capped at limit.
func (r *JobRepository) ListRecent(userID string, limit int) ([]*models.CopyJob, error) {
	if limit <= 0 {
		limit = 20
	}

	query := selectJobs + " WHERE user_id = ? AND deleted_at IS NULL ORDER BY sequence DESC LIMIT ?"

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query copy jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.CopyJob
	for rows.Next() {
		job, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

const selectJobs = `
	SELECT
		id, sequence, user_id, source_playlist_id, source_name,
		new_playlist_id, new_name, status, stage, tracks_total,
		tracks_added, cover_url, error_message, created_at, updated_at,
		deleted_at
	FROM copy_jobs
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *JobRepository) scanOne(row *sql.Row) (*models.CopyJob, error) {
	job, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("copy job not found")
	}
	return job, err
}

func (r *JobRepository) scanRow(row rowScanner) (*models.CopyJob, error) {
	var (
		id, userID, sourcePlaylistID, sourceName string
		newPlaylistID, coverURL, errorMessage    sql.NullString
		newName, status, stage                   string
		sequence, tracksTotal, tracksAdded       int
		createdAt, updatedAt                     time.Time
		deletedAt                                sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &userID, &sourcePlaylistID, &sourceName,
		&newPlaylistID, &newName, &status, &stage, &tracksTotal,
		&tracksAdded, &coverURL, &errorMessage, &createdAt, &updatedAt,
		&deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan copy job: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreCopyJob(
		id, sequence, userID, sourcePlaylistID, sourceName,
		newPlaylistID.String, newName, status, stage,
		tracksTotal, tracksAdded, coverURL.String, errorMessage.String,
		createdAt, updatedAt, deleted,
	), nil
}

// nullable converts empty strings to NULL for optional columns.
func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
