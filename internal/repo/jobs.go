package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// JobStore holds a pointer to the sql.DB.
type JobStore struct {
	DB *sql.DB
}

// GetJobStore returns a job store instance with injected database.
func GetJobStore(db *sql.DB) *JobStore {
	return &JobStore{
		DB: db,
	}
}

// GetDB returns the database.
func (js *JobStore) GetDB() *sql.DB {
	return js.DB
}

// jobColumns is the canonical select order, matching scanJob.
var jobColumns = []string{
	consts.QJobID,
	consts.QJobURL,
	consts.QJobDomain,
	consts.QJobStatus,
	consts.QJobPriority,
	consts.QJobAttempts,
	consts.QJobMaxAttempts,
	consts.QJobNextRetryAt,
	consts.QJobDownloadDir,
	consts.QJobErrorKind,
	consts.QJobErrorMsg,
	consts.QJobCreatedAt,
	consts.QJobUpdatedAt,
	consts.QJobStartedAt,
	consts.QJobFinishedAt,
}

// AddJob inserts a newly submitted job.
func (js *JobStore) AddJob(j *models.Job) (err error) {
	tx, err := js.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for job with URL %q: %v", j.URL, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Error rolling back job insert for URL %q (original error: %v): %v", j.URL, err, rbErr)
			}
		}
	}()

	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	query := squirrel.
		Insert(consts.DBJobs).
		Columns(jobColumns...).
		Values(
			j.ID,
			j.URL,
			j.Domain,
			j.Status,
			j.Priority,
			j.AttemptCount,
			j.MaxAttempts,
			j.NextRetryAt,
			j.DownloadDir,
			j.LastErrorKind,
			j.LastError,
			j.CreatedAt,
			j.UpdatedAt,
			j.StartedAt,
			j.FinishedAt,
		).
		RunWith(tx)

	if _, err = query.Exec(); err != nil {
		return fmt.Errorf("failed to insert job %q: %w", j.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateJob persists the job's current mutable state after a transition.
func (js *JobStore) UpdateJob(j *models.Job) (err error) {
	tx, err := js.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for job %q: %v", j.ID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Error rolling back job update for %q (original error: %v): %v", j.ID, err, rbErr)
			}
		}
	}()

	j.UpdatedAt = time.Now()

	query := squirrel.
		Update(consts.DBJobs).
		Set(consts.QJobStatus, j.Status).
		Set(consts.QJobPriority, j.Priority).
		Set(consts.QJobAttempts, j.AttemptCount).
		Set(consts.QJobNextRetryAt, j.NextRetryAt).
		Set(consts.QJobErrorKind, j.LastErrorKind).
		Set(consts.QJobErrorMsg, j.LastError).
		Set(consts.QJobUpdatedAt, j.UpdatedAt).
		Set(consts.QJobStartedAt, j.StartedAt).
		Set(consts.QJobFinishedAt, j.FinishedAt).
		Where(squirrel.Eq{consts.QJobID: j.ID}).
		RunWith(tx)

	res, err := query.Exec()
	if err != nil {
		return fmt.Errorf("failed to update job %q: %w", j.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for job %q: %w", j.ID, err)
	}
	if rows == 0 {
		err = fmt.Errorf("no stored job with ID %q", j.ID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetJob fetches one job by ID.
func (js *JobStore) GetJob(id string) (*models.Job, bool, error) {
	query := squirrel.
		Select(jobColumns...).
		From(consts.DBJobs).
		Where(squirrel.Eq{consts.QJobID: id}).
		RunWith(js.DB)

	j, err := scanJob(query.QueryRow())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query job %q: %w", id, err)
	}
	return j, true, nil
}

// GetJobs fetches jobs filtered to the given statuses, newest first. With no
// statuses it returns every job.
func (js *JobStore) GetJobs(statuses ...consts.JobStatus) ([]*models.Job, error) {
	builder := squirrel.
		Select(jobColumns...).
		From(consts.DBJobs).
		OrderBy(consts.QJobCreatedAt + " DESC")

	if len(statuses) > 0 {
		builder = builder.Where(squirrel.Eq{consts.QJobStatus: statuses})
	}

	rows, err := builder.RunWith(js.DB).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.E("Failed to close job rows: %v", closeErr)
		}
	}()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating job rows: %w", err)
	}
	return jobs, nil
}

// LoadPendingJobs fetches every pending job in dispatch order: priority
// first, then submission order.
func (js *JobStore) LoadPendingJobs() ([]*models.Job, error) {
	query := squirrel.
		Select(jobColumns...).
		From(consts.DBJobs).
		Where(squirrel.Eq{consts.QJobStatus: consts.JobStatusPending}).
		OrderBy(
			consts.QJobPriority+" DESC",
			consts.QJobCreatedAt+" ASC",
			consts.QJobID+" ASC",
		).
		RunWith(js.DB)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.E("Failed to close pending job rows: %v", closeErr)
		}
	}()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating pending job rows: %w", err)
	}
	return jobs, nil
}

// ReclaimInterruptedJobs reclassifies jobs left running by an unclean
// shutdown back to pending. Call before the worker pool starts consuming.
func (js *JobStore) ReclaimInterruptedJobs() (reclaimed int64, err error) {
	tx, err := js.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed while reclaiming jobs: %v", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Error rolling back job reclaim (original error: %v): %v", err, rbErr)
			}
		}
	}()

	query := squirrel.
		Update(consts.DBJobs).
		Set(consts.QJobStatus, consts.JobStatusPending).
		Set(consts.QJobUpdatedAt, time.Now()).
		Where(squirrel.Eq{consts.QJobStatus: consts.JobStatusRunning}).
		RunWith(tx)

	res, err := query.Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim interrupted jobs: %w", err)
	}

	reclaimed, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reclaimed row count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return reclaimed, nil
}

// PurgeHistory deletes terminal jobs that finished before the cutoff. Event
// rows cascade away with their jobs; dedup download records are kept.
func (js *JobStore) PurgeHistory(olderThan time.Time) (purged int64, err error) {
	tx, err := js.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed while purging history: %v", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Error rolling back history purge (original error: %v): %v", err, rbErr)
			}
		}
	}()

	query := squirrel.
		Delete(consts.DBJobs).
		Where(squirrel.Eq{consts.QJobStatus: []consts.JobStatus{
			consts.JobStatusCompleted,
			consts.JobStatusFailed,
			consts.JobStatusCancelled,
		}}).
		Where(squirrel.Lt{consts.QJobFinishedAt: olderThan}).
		RunWith(tx)

	res, err := query.Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to purge job history: %w", err)
	}

	purged, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purged row count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return purged, nil
}

// ******************************** Private ********************************

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one row in jobColumns order.
func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j           models.Job
		nextRetryAt sql.NullTime
		downloadDir sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		startedAt   sql.NullTime
		finishedAt  sql.NullTime
	)

	if err := row.Scan(
		&j.ID,
		&j.URL,
		&j.Domain,
		&j.Status,
		&j.Priority,
		&j.AttemptCount,
		&j.MaxAttempts,
		&nextRetryAt,
		&downloadDir,
		&errorKind,
		&errorMsg,
		&j.CreatedAt,
		&j.UpdatedAt,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	j.DownloadDir = nullString(downloadDir)
	j.LastErrorKind = nullString(errorKind)
	j.LastError = nullString(errorMsg)
	j.NextRetryAt = nullTimePtr(nextRetryAt)
	j.StartedAt = nullTimePtr(startedAt)
	j.FinishedAt = nullTimePtr(finishedAt)

	return &j, nil
}

// nullString converts an sql.NullString into a string, or "".
func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}

// nullTimePtr converts an sql.NullTime into a *time.Time, or nil.
func nullTimePtr(t sql.NullTime) *time.Time {
	if t.Valid {
		v := t.Time
		return &v
	}
	return nil
}
