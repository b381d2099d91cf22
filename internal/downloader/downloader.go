// Package downloader implements the shared machinery every download variant
// builds on: cooperative cancellation, content filtering, filename handling,
// throttled progress emission, bandwidth limiting, and dedup bookkeeping.
package downloader

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/throttle"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// ProgressFunc receives throttled progress updates from active downloads.
type ProgressFunc func(models.Progress)

// Deps carries the collaborators shared by all downloader variants.
type Deps struct {
	Settings   models.DownloadSettings
	Store      contracts.DownloadStore
	Cookies    *CookieManager
	OnProgress ProgressFunc
}

// Base provides the shared behavior composed into every variant. One Base
// serves one job at a time; the factory constructs a fresh instance per job.
type Base struct {
	deps   Deps
	site   string
	client *http.Client

	throttle *throttle.Throttle

	cancelled atomic.Bool
	cancelMu  sync.Mutex
	cancelFn  context.CancelFunc

	progressMu sync.Mutex
	lastEmit   time.Time
}

// NewBase builds the shared core for a variant named site.
func NewBase(site string, deps Deps) *Base {
	return &Base{
		deps:     deps,
		site:     site,
		client:   newHTTPClient(deps.Settings),
		throttle: throttle.New(deps.Settings.BandwidthLimit),
	}
}

// SiteName identifies the variant in logs and events.
func (b *Base) SiteName() string {
	return b.site
}

// Settings returns the download options bound at construction.
func (b *Base) Settings() models.DownloadSettings {
	return b.deps.Settings
}

// Cookies returns the shared cookie manager, or nil when browser cookie
// loading is disabled.
func (b *Base) Cookies() *CookieManager {
	return b.deps.Cookies
}

// Throttle returns this download's bandwidth budget.
func (b *Base) Throttle() *throttle.Throttle {
	return b.throttle
}

// RequestCancel asks the in-flight download to stop at its next suspension
// point. Safe to call from any goroutine, before or during Download.
func (b *Base) RequestCancel() {
	b.cancelled.Store(true)

	b.cancelMu.Lock()
	fn := b.cancelFn
	b.cancelMu.Unlock()

	if fn != nil {
		fn()
	}
}

// Cancelled reports whether cancellation has been requested.
func (b *Base) Cancelled() bool {
	return b.cancelled.Load()
}

// BindContext derives the attempt context that RequestCancel fires. Variants
// call this once at the top of Download and defer the returned cancel.
func (b *Base) BindContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	b.cancelMu.Lock()
	b.cancelFn = cancel
	b.cancelMu.Unlock()

	if b.cancelled.Load() {
		cancel()
	}
	return ctx, cancel
}

// CheckCancelled returns context.Canceled once cancellation has been
// requested or the context has ended. Variants call it at loop starts, after
// each network-read chunk, and after each enumerated item.
func (b *Base) CheckCancelled(ctx context.Context) error {
	if b.cancelled.Load() {
		return context.Canceled
	}
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	default:
		return nil
	}
}

// SeenBefore reports whether a media URL was already downloaded by any job.
// Store errors are logged and treated as unseen so one bad read never skips
// real content.
func (b *Base) SeenBefore(mediaURL string) bool {
	if b.deps.Store == nil {
		return false
	}

	seen, err := b.deps.Store.HasDownloaded(mediaURL)
	if err != nil {
		logging.E("Failed dedup lookup for %q: %v", mediaURL, err)
		return false
	}
	return seen
}

// RecordFetched marks a media URL as downloaded for cross-job dedup.
func (b *Base) RecordFetched(rec *models.DownloadRecord) {
	if b.deps.Store == nil {
		return
	}
	if err := b.deps.Store.AddDownload(rec); err != nil {
		logging.E("Failed to record download of %q: %v", rec.MediaURL, err)
	}
}

// FetchItem downloads one enumerated media item into the job's directory and
// folds the outcome into res. Ordinary failures are recorded in res and do
// not abort the job; the returned error is non-nil only for cancellation.
func (b *Base) FetchItem(ctx context.Context, req contracts.DownloadRequest, item models.MediaItem, res *models.DownloadResult) error {
	res.TotalCount++

	if err := b.CheckCancelled(ctx); err != nil {
		return err
	}

	if reason := b.FilterItem(item); reason != "" {
		logging.D("Skipping %q: %s", item.URL, reason)
		res.SkippedItems = append(res.SkippedItems, models.SkippedItem{Item: item, Reason: reason})
		return nil
	}

	if b.SeenBefore(item.URL) {
		logging.D("Skipping %q: already downloaded", item.URL)
		res.SkippedItems = append(res.SkippedItems, models.SkippedItem{Item: item, Reason: "already downloaded"})
		return nil
	}

	written, path, err := b.FetchFile(ctx, req, item)
	if err != nil {
		if cancelErr := b.CheckCancelled(ctx); cancelErr != nil {
			return cancelErr
		}
		logging.E("Failed to fetch %q: %v", item.URL, err)
		res.FailedItems = append(res.FailedItems, models.FailedItem{Item: item, Reason: err.Error()})
		return nil
	}

	res.CompletedCount++
	res.TotalBytes += written

	b.RecordFetched(&models.DownloadRecord{
		JobID:       req.JobID,
		MediaURL:    item.URL,
		FilePath:    path,
		FileSize:    written,
		ContentType: string(ClassifyExt(item.Filename)),
	})
	return nil
}
