package contracts

import (
	"context"

	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// DownloadRequest carries the per-job inputs a downloader needs.
type DownloadRequest struct {
	JobID string
	URL   string
	Dir   string
}

// Downloader is the capability contract satisfied by every site scraper and
// engine adapter. The factory hands out a fresh instance per job, so
// cancellation state never crosses jobs.
//
// Download reports ordinary per-item network and content failures inside the
// returned result, never as an error. A non-nil error means the job as a
// whole could not proceed (enumeration or authentication failed, input was
// unusable) and is classified for retry by the queue manager.
type Downloader interface {
	// SupportsURL reports whether this downloader can handle the URL.
	SupportsURL(rawURL string) bool

	// SiteName identifies the variant in logs and events.
	SiteName() string

	// Download fetches all content for the request, honoring ctx and
	// RequestCancel at every chunk and item boundary.
	Download(ctx context.Context, req DownloadRequest) (*models.DownloadResult, error)

	// RequestCancel asks an in-flight Download to stop at its next
	// suspension point.
	RequestCancel()

	// Cancelled reports whether cancellation has been requested.
	Cancelled() bool
}

// DownloaderFactory routes a URL to a concrete downloader instance, or
// reports that no registered variant supports it.
type DownloaderFactory interface {
	GetDownloader(rawURL string) (Downloader, bool)
}
