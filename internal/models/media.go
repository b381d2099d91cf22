package models

import (
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

// MediaItem is one discrete downloadable file discovered while a downloader
// processes a job. Transient, not persisted beyond dedup bookkeeping.
type MediaItem struct {
	URL      string          `json:"url"`
	Filename string          `json:"filename"`
	Size     int64           `json:"size"`
	FileType consts.FileType `json:"file_type"`
	PostID   string          `json:"post_id"`
}

// DownloadRecord marks one media URL as downloaded, for dedup across
// restarts and across unrelated jobs.
type DownloadRecord struct {
	ID          int64     `json:"id" db:"id"`
	JobID       string    `json:"job_id" db:"job_id"`
	MediaURL    string    `json:"url" db:"url"`
	FilePath    string    `json:"file_path" db:"file_path"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	ContentType string    `json:"content_type" db:"content_type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// FailedItem pairs a media item with the failure that stopped it.
type FailedItem struct {
	Item   MediaItem `json:"item"`
	Reason string    `json:"reason"`
}

// SkippedItem pairs a media item with the reason it was not fetched.
type SkippedItem struct {
	Item   MediaItem `json:"item"`
	Reason string    `json:"reason"`
}

// DownloadResult summarizes one download attempt over a whole job.
type DownloadResult struct {
	Success        bool          `json:"success"`
	TotalCount     int           `json:"total_count"`
	CompletedCount int           `json:"completed_count"`
	FailedItems    []FailedItem  `json:"failed_items,omitempty"`
	SkippedItems   []SkippedItem `json:"skipped_items,omitempty"`
	TotalBytes     int64         `json:"total_bytes"`
	ElapsedTime    time.Duration `json:"elapsed_time"`
}
