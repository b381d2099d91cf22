package consts

// Tables
const (
	DBJobs      = "jobs"
	DBEvents    = "events"
	DBDownloads = "downloads"
)

// Jobs
const (
	QJobID          = "id"
	QJobURL         = "url"
	QJobDomain      = "domain"
	QJobStatus      = "status"
	QJobPriority    = "priority"
	QJobAttempts    = "attempt_count"
	QJobMaxAttempts = "max_attempts"
	QJobNextRetryAt = "next_retry_at"
	QJobDownloadDir = "download_dir"
	QJobErrorKind   = "error_kind"
	QJobErrorMsg    = "error_msg"
	QJobCreatedAt   = "created_at"
	QJobUpdatedAt   = "updated_at"
	QJobStartedAt   = "started_at"
	QJobFinishedAt  = "finished_at"
)

// Job events
const (
	QEventID        = "id"
	QEventJobID     = "job_id"
	QEventType      = "event_type"
	QEventDetail    = "detail"
	QEventCreatedAt = "created_at"
)

// Downloads
const (
	QDLID          = "id"
	QDLJobID       = "job_id"
	QDLURL         = "url"
	QDLFilePath    = "file_path"
	QDLFileSize    = "file_size"
	QDLContentType = "content_type"
	QDLCreatedAt   = "created_at"
)

// JobStatus holds constant job status strings.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true for a recognized job status string.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal returns true once a job can no longer change state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// EventType holds constant job event type strings.
type EventType string

const (
	EventAdded     EventType = "ADDED"
	EventStarted   EventType = "STARTED"
	EventProgress  EventType = "PROGRESS"
	EventRetry     EventType = "RETRY"
	EventDone      EventType = "DONE"
	EventFailed    EventType = "FAILED"
	EventCancelled EventType = "CANCELLED"
)

// ErrorKind classifies a failure for retry decisions and history records.
type ErrorKind string

const (
	ErrKindNone        ErrorKind = ""
	ErrKindTransient   ErrorKind = "transient_network"
	ErrKindPermanent   ErrorKind = "permanent_request"
	ErrKindParse       ErrorKind = "content_parse"
	ErrKindCancelled   ErrorKind = "cancelled"
	ErrKindPersistence ErrorKind = "persistence"
	ErrKindUnsupported ErrorKind = "unsupported_url"
)
