// Package contracts defines interfaces that decouple the application layer from storage implementations.
package contracts

import (
	"database/sql"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// Store allows access to the main store repo methods.
type Store interface {
	JobStore() JobStore
	EventStore() EventStore
	DownloadStore() DownloadStore
}

// JobStore allows access to job repo methods.
type JobStore interface {
	GetDB() *sql.DB

	// Add operations.
	AddJob(j *models.Job) error

	// Update operations.
	UpdateJob(j *models.Job) error

	// 'Get' operations.
	GetJob(id string) (j *models.Job, hasRow bool, err error)
	GetJobs(statuses ...consts.JobStatus) ([]*models.Job, error)
	LoadPendingJobs() ([]*models.Job, error)

	// Recovery and retention.
	ReclaimInterruptedJobs() (int64, error)
	PurgeHistory(olderThan time.Time) (int64, error)
}

// EventStore allows access to the append-only job event log.
type EventStore interface {
	GetDB() *sql.DB

	AddEvent(e *models.DownloadEvent) error
	GetJobEvents(jobID string) ([]*models.DownloadEvent, error)
}

// DownloadStore allows access to the dedup download records.
type DownloadStore interface {
	GetDB() *sql.DB

	HasDownloaded(mediaURL string) (bool, error)
	AddDownload(rec *models.DownloadRecord) error
	GetDownloads(jobID string) ([]*models.DownloadRecord, error)
}
