// Package models holds data models for download jobs, events, and media records.
package models

import (
	"fmt"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

// Job is one user-submitted download task tracked end-to-end by the queue.
//
// Matches the order of the DB table, do not alter.
type Job struct {
	ID            string           `json:"id" db:"id"`
	URL           string           `json:"url" db:"url"`
	Domain        string           `json:"domain" db:"domain"`
	Status        consts.JobStatus `json:"status" db:"status"`
	Priority      int              `json:"priority" db:"priority"`
	AttemptCount  int              `json:"attempt_count" db:"attempt_count"`
	MaxAttempts   int              `json:"max_attempts" db:"max_attempts"`
	NextRetryAt   *time.Time       `json:"next_retry_at,omitempty" db:"next_retry_at"`
	DownloadDir   string           `json:"download_dir" db:"download_dir"`
	LastErrorKind string           `json:"error_kind,omitempty" db:"error_kind"`
	LastError     string           `json:"error_msg,omitempty" db:"error_msg"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty" db:"started_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty" db:"finished_at"`
}

// transition moves the job to a new status, rejecting mutation of terminal states.
func (j *Job) transition(to consts.JobStatus) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s is already %s, cannot transition to %s", j.ID, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = time.Now()
	return nil
}

// MarkRunning transitions the job into the running state and stamps the attempt start.
func (j *Job) MarkRunning() error {
	if err := j.transition(consts.JobStatusRunning); err != nil {
		return err
	}
	now := time.Now()
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	j.AttemptCount++
	j.NextRetryAt = nil
	return nil
}

// MarkCompleted moves the job into its successful terminal state.
func (j *Job) MarkCompleted() error {
	if err := j.transition(consts.JobStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	j.FinishedAt = &now
	j.LastErrorKind = ""
	j.LastError = ""
	return nil
}

// MarkFailed moves the job into its failed terminal state, recording the cause.
func (j *Job) MarkFailed(kind, msg string) error {
	if err := j.transition(consts.JobStatusFailed); err != nil {
		return err
	}
	now := time.Now()
	j.FinishedAt = &now
	j.LastErrorKind = kind
	j.LastError = msg
	return nil
}

// MarkCancelled moves the job into its cancelled terminal state.
func (j *Job) MarkCancelled() error {
	if err := j.transition(consts.JobStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	j.FinishedAt = &now
	return nil
}

// MarkPendingRetry returns the job to the pending state after a retryable
// failure, eligible again once nextRetryAt elapses.
func (j *Job) MarkPendingRetry(kind, msg string, nextRetryAt time.Time) error {
	if err := j.transition(consts.JobStatusPending); err != nil {
		return err
	}
	j.LastErrorKind = kind
	j.LastError = msg
	j.NextRetryAt = &nextRetryAt
	return nil
}

// Requeue returns an interrupted job to the pending state without consuming
// an attempt. Used when shutdown stops a running job before its attempt can
// finish.
func (j *Job) Requeue() error {
	if err := j.transition(consts.JobStatusPending); err != nil {
		return err
	}
	if j.AttemptCount > 0 {
		j.AttemptCount--
	}
	j.NextRetryAt = nil
	return nil
}

// AttemptsExhausted reports whether the job has used up its retry budget.
func (j *Job) AttemptsExhausted() bool {
	return j.AttemptCount >= j.MaxAttempts
}
