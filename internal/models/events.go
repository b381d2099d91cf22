package models

import (
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

// DownloadEvent is one append-only record in a job's event stream.
type DownloadEvent struct {
	ID        int64            `json:"id" db:"id"`
	JobID     string           `json:"job_id" db:"job_id"`
	Type      consts.EventType `json:"event_type" db:"event_type"`
	Detail    string           `json:"detail" db:"detail"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Progress models one throttled progress callback from an active download.
type Progress struct {
	JobID      string  `json:"job_id"`
	URL        string  `json:"url"`
	Filename   string  `json:"filename"`
	Percent    float64 `json:"percent"`
	BytesDone  int64   `json:"bytes_done"`
	TotalBytes int64   `json:"total_bytes"`
}
