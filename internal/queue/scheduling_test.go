package queue_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/queue"
	"github.com/primoscope/CoomerDL-sub000/internal/retry"
)

// inflightTracker counts concurrent attempts per host and records the peak.
type inflightTracker struct {
	mu      sync.Mutex
	current map[string]int
	peak    map[string]int
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{current: make(map[string]int), peak: make(map[string]int)}
}

func (tr *inflightTracker) enter(rawURL string) string {
	u, _ := url.Parse(rawURL)
	host := u.Hostname()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.current[host]++
	if tr.current[host] > tr.peak[host] {
		tr.peak[host] = tr.current[host]
	}
	return host
}

func (tr *inflightTracker) leave(host string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.current[host]--
}

func (tr *inflightTracker) peakFor(host string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.peak[host]
}

func TestDomainCapNeverExceeded(t *testing.T) {
	t.Parallel()

	tracker := newInflightTracker()
	behavior := func(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
		host := tracker.enter(req.URL)
		defer tracker.leave(host)

		select {
		case <-time.After(60 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return okResult(), nil
	}

	store := newTestStore(t)
	m := startManager(t, store, &stubFactory{behavior: behavior}, queue.Options{
		MaxConcurrent:     8,
		DomainConcurrency: 2,
	})
	events := subscribe(t, m)

	var ids []string
	for i := 0; i < 4; i++ {
		for _, host := range []string{"alpha.test", "beta.test"} {
			id, err := m.Submit(fmt.Sprintf("https://%s/file/%d", host, i), t.TempDir(), queue.SubmitOptions{})
			if err != nil {
				t.Fatalf("expected submit to succeed, got %v", err)
			}
			ids = append(ids, id)
		}
	}

	waitForAll(t, events, consts.EventDone, ids...)

	for _, host := range []string{"alpha.test", "beta.test"} {
		if peak := tracker.peakFor(host); peak > 2 {
			t.Errorf("expected at most 2 concurrent requests to %s, observed %d", host, peak)
		}
	}
}

func TestSingleDomainSpacing(t *testing.T) {
	t.Parallel()

	tracker := newInflightTracker()
	behavior := func(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
		host := tracker.enter(req.URL)
		defer tracker.leave(host)

		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return okResult(), nil
	}

	store := newTestStore(t)
	m := startManager(t, store, &stubFactory{behavior: behavior}, queue.Options{
		MaxConcurrent:     3,
		DomainConcurrency: 1,
		DomainInterval:    time.Second,
	})
	events := subscribe(t, m)

	start := time.Now()
	var ids []string
	for _, p := range []string{"a", "b", "c"} {
		id, err := m.Submit("https://slow.test/"+p, t.TempDir(), queue.SubmitOptions{})
		if err != nil {
			t.Fatalf("expected submit to succeed, got %v", err)
		}
		ids = append(ids, id)
	}

	waitForAll(t, events, consts.EventDone, ids...)
	elapsed := time.Since(start)

	// Three spaced dispatches at 1s apart need two full gaps.
	if elapsed < 2*time.Second {
		t.Errorf("expected three spaced downloads to take at least 2s, took %s", elapsed)
	}
	if peak := tracker.peakFor("slow.test"); peak != 1 {
		t.Errorf("expected at most one request in flight for slow.test, observed %d", peak)
	}
}

func TestCongestedDomainDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	behavior := func(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
		u, _ := url.Parse(req.URL)
		if u.Hostname() == "jammed.test" && u.Path == "/first" {
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return okResult(), nil
	}

	store := newTestStore(t)
	m := startManager(t, store, &stubFactory{behavior: behavior}, queue.Options{
		MaxConcurrent:     2,
		DomainConcurrency: 1,
	})
	events := subscribe(t, m)

	jammed, err := m.Submit("https://jammed.test/first", t.TempDir(), queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	<-started

	// Queued behind the jammed domain's single permit.
	stuck, err := m.Submit("https://jammed.test/second", t.TempDir(), queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	free, err := m.Submit("https://free.test/quick", t.TempDir(), queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	// The unrelated domain's job completes while jammed.test holds its
	// only permit hostage.
	waitForEvent(t, events, free, consts.EventDone)

	if j, err := m.Status(stuck); err != nil {
		t.Fatalf("expected job status, got %v", err)
	} else if j.Status != consts.JobStatusPending {
		t.Errorf("expected the queued same-domain job to still be %s, got %s", consts.JobStatusPending, j.Status)
	}

	close(release)
	waitForEvent(t, events, jammed, consts.EventDone)
	waitForEvent(t, events, stuck, consts.EventDone)
}

func TestRetryAfterServerError(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		attempts int
	)
	behavior := func(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		if n == 1 {
			return nil, &net.HTTPStatusError{StatusCode: http.StatusInternalServerError, Status: "500 Internal Server Error"}
		}
		return okResult(), nil
	}

	store := newTestStore(t)
	m := startManager(t, store, &stubFactory{behavior: behavior}, queue.Options{
		MaxConcurrent: 1,
		Retry:         retry.Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, DelayCap: time.Second},
	})
	events := subscribe(t, m)

	id, err := m.Submit("https://flaky.test/gallery", t.TempDir(), queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	waitForEvent(t, events, id, consts.EventRetry)

	// Between attempts the job waits out its backoff as pending.
	j, err := m.Status(id)
	if err != nil {
		t.Fatalf("expected job status, got %v", err)
	}
	if j.Status != consts.JobStatusPending {
		t.Errorf("expected status %s while waiting for retry, got %s", consts.JobStatusPending, j.Status)
	}
	if j.LastErrorKind != string(consts.ErrKindTransient) {
		t.Errorf("expected error kind %s, got %s", consts.ErrKindTransient, j.LastErrorKind)
	}

	waitForEvent(t, events, id, consts.EventDone)

	j, err = m.Status(id)
	if err != nil {
		t.Fatalf("expected job status, got %v", err)
	}
	if j.Status != consts.JobStatusCompleted {
		t.Fatalf("expected status %s, got %s", consts.JobStatusCompleted, j.Status)
	}
	if j.AttemptCount != 2 {
		t.Errorf("expected 2 attempts, got %d", j.AttemptCount)
	}

	stored, err := store.EventStore().GetJobEvents(id)
	if err != nil {
		t.Fatalf("expected job events, got %v", err)
	}
	var (
		types    []consts.EventType
		started  []time.Time
		nRetries int
	)
	for _, e := range stored {
		types = append(types, e.Type)
		if e.Type == consts.EventRetry {
			nRetries++
		}
		if e.Type == consts.EventStarted {
			started = append(started, e.CreatedAt)
		}
	}
	if nRetries != 1 {
		t.Errorf("expected exactly one retry event, got %d", nRetries)
	}
	want := []consts.EventType{consts.EventAdded, consts.EventStarted, consts.EventRetry, consts.EventStarted, consts.EventDone}
	if !slices.Equal(types, want) {
		t.Errorf("expected event sequence %v, got %v", want, types)
	}

	// The second attempt must not begin before the backoff elapses.
	if len(started) == 2 {
		if gap := started[1].Sub(started[0]); gap < 200*time.Millisecond {
			t.Errorf("expected at least the 200ms base delay between attempts, got %s", gap)
		}
	}
}

func TestRetryExhaustionFails(t *testing.T) {
	t.Parallel()

	behavior := func(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
		return nil, &net.HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	}

	store := newTestStore(t)
	m := startManager(t, store, &stubFactory{behavior: behavior}, queue.Options{
		MaxConcurrent: 1,
		Retry:         retry.Policy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, DelayCap: 200 * time.Millisecond},
	})
	events := subscribe(t, m)

	id, err := m.Submit("https://dead.test/gallery", t.TempDir(), queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	waitForEvent(t, events, id, consts.EventFailed)

	j, err := m.Status(id)
	if err != nil {
		t.Fatalf("expected job status, got %v", err)
	}
	if j.Status != consts.JobStatusFailed {
		t.Fatalf("expected status %s, got %s", consts.JobStatusFailed, j.Status)
	}
	if j.AttemptCount != 3 {
		t.Errorf("expected all 3 attempts used, got %d", j.AttemptCount)
	}
	if j.LastError == "" {
		t.Error("expected a human-readable failure message")
	}

	want := []consts.EventType{
		consts.EventAdded,
		consts.EventStarted, consts.EventRetry,
		consts.EventStarted, consts.EventRetry,
		consts.EventStarted, consts.EventFailed,
	}
	if got := storedEventTypes(t, store, id); !slices.Equal(got, want) {
		t.Errorf("expected event sequence %v, got %v", want, got)
	}
}

// throttledSite drives a real shared-base fetch against a test server, so
// cancellation exercises the true partial-file cleanup path.
type throttledSite struct {
	*downloader.Base
	fileURL string
}

func (d *throttledSite) SupportsURL(string) bool { return true }

func (d *throttledSite) Download(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
	ctx, cancel := d.BindContext(ctx)
	defer cancel()

	res := &models.DownloadResult{}
	item := models.MediaItem{URL: d.fileURL, Filename: "big.jpg"}
	if err := d.FetchItem(ctx, req, item, res); err != nil {
		return res, err
	}
	res.Success = len(res.FailedItems) == 0
	return res, nil
}

// realSiteFactory hands out the pre-built site for every URL.
type realSiteFactory struct {
	site contracts.Downloader
}

func (f *realSiteFactory) GetDownloader(string) (contracts.Downloader, bool) {
	return f.site, true
}

func TestCancelMidDownloadRemovesPartialFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(make([]byte, 64*1024)); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	store := newTestStore(t)

	var m *queue.Manager
	deps := downloader.Deps{
		Settings: models.DownloadSettings{ConnectTimeout: 5 * time.Second, ReadTimeout: 30 * time.Second},
		Store:    store.DownloadStore(),
		OnProgress: func(p models.Progress) {
			m.PublishProgress(p)
		},
	}
	site := &throttledSite{Base: downloader.NewBase("testsite", deps), fileURL: srv.URL + "/big.jpg"}

	m = queue.NewManager(store, &realSiteFactory{site: site}, queue.Options{MaxConcurrent: 1, GracePeriod: 3 * time.Second})
	if err := m.Start(); err != nil {
		t.Fatalf("expected manager to start, got %v", err)
	}
	t.Cleanup(func() {
		if err := m.Stop(); err != nil {
			t.Logf("manager stop: %v", err)
		}
	})
	events := subscribe(t, m)

	dir := t.TempDir()
	id, err := m.Submit("https://party.test/user/big", dir, queue.SubmitOptions{})
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	// The first progress callback proves bytes are flowing.
	progressSeen := false
	deadline := time.After(10 * time.Second)
	for !progressSeen {
		select {
		case e := <-events:
			if e.JobID == id && e.Type == consts.EventProgress {
				progressSeen = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for download progress")
		}
	}

	cancelAt := time.Now()
	if err := m.Cancel(id); err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}
	waitForEvent(t, events, id, consts.EventCancelled)
	if halt := time.Since(cancelAt); halt > 5*time.Second {
		t.Errorf("expected cancellation to settle promptly, took %s", halt)
	}

	j, err := m.Status(id)
	if err != nil {
		t.Fatalf("expected job status, got %v", err)
	}
	if j.Status != consts.JobStatusCancelled {
		t.Fatalf("expected status %s, got %s", consts.JobStatusCancelled, j.Status)
	}

	running, err := m.List(consts.JobStatusRunning)
	if err != nil {
		t.Fatalf("expected job listing, got %v", err)
	}
	if len(running) != 0 {
		t.Errorf("expected no running jobs after cancellation, got %d", len(running))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("expected download dir to be readable, got %v", err)
	}
	for _, entry := range entries {
		t.Errorf("expected partial output to be removed, found %q", entry.Name())
	}
}
