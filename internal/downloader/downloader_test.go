package downloader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/database"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/repo"
)

// TestClassifyExt tests extension to file type classification.
func TestClassifyExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     consts.FileType
	}{
		{"photo.jpg", consts.FileTypeImage},
		{"PHOTO.JPG", consts.FileTypeImage},
		{"clip.mp4", consts.FileTypeVideo},
		{"notes.pdf", consts.FileTypeDocument},
		{"bundle.zip", consts.FileTypeArchive},
		{"mystery.xyz", consts.FileTypeOther},
		{"no-extension", consts.FileTypeOther},
	}

	for _, tt := range tests {
		if got := downloader.ClassifyExt(tt.filename); got != tt.want {
			t.Errorf("ClassifyExt(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

// TestFilterItem tests extension exclusion and size bounds.
func TestFilterItem(t *testing.T) {
	t.Parallel()

	b := downloader.NewBase("test", downloader.Deps{
		Settings: models.DownloadSettings{
			ExcludeExts: []string{"zip", ".RAR"},
			MinFileSize: 1024,
			MaxFileSize: 1 << 20,
		},
	})

	tests := []struct {
		name     string
		item     models.MediaItem
		wantSkip bool
	}{
		{"kept", models.MediaItem{Filename: "a.jpg", Size: 2048}, false},
		{"excluded ext", models.MediaItem{Filename: "a.zip", Size: 2048}, true},
		{"excluded ext normalized", models.MediaItem{Filename: "a.rar", Size: 2048}, true},
		{"too small", models.MediaItem{Filename: "a.jpg", Size: 100}, true},
		{"too large", models.MediaItem{Filename: "a.jpg", Size: 2 << 20}, true},
		{"unknown size passes bounds", models.MediaItem{Filename: "a.jpg", Size: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := b.FilterItem(tt.item)
			if tt.wantSkip && reason == "" {
				t.Errorf("expected %q to be filtered, got keep", tt.item.Filename)
			}
			if !tt.wantSkip && reason != "" {
				t.Errorf("expected %q to pass, got skip reason %q", tt.item.Filename, reason)
			}
		})
	}
}

// TestFilterDate tests the published-date range filter.
func TestFilterDate(t *testing.T) {
	t.Parallel()

	after := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	b := downloader.NewBase("test", downloader.Deps{
		Settings: models.DownloadSettings{
			FilterAfter:  after,
			FilterBefore: before,
		},
	})

	tests := []struct {
		name      string
		published time.Time
		wantSkip  bool
	}{
		{"zero date passes", time.Time{}, false},
		{"inside range", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), false},
		{"before cutoff", time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"after cutoff", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := b.FilterDate(tt.published)
			if tt.wantSkip && reason == "" {
				t.Errorf("expected %v to be filtered, got keep", tt.published)
			}
			if !tt.wantSkip && reason != "" {
				t.Errorf("expected %v to pass, got skip reason %q", tt.published, reason)
			}
		})
	}
}

// TestSanitizeFilename tests filesystem-safe name generation.
func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fallback string
		want     string
	}{
		{"simple.jpg", "fb", "simple.jpg"},
		{"has spaces here.PNG", "fb", "has-spaces-here.png"},
		{"../../evil.sh", "fb", "evil.sh"},
		{"...", "fb.bin", "fb.bin"},
		{"", "fb.bin", "fb.bin"},
	}

	for _, tt := range tests {
		if got := downloader.SanitizeFilename(tt.name, tt.fallback); got != tt.want {
			t.Errorf("SanitizeFilename(%q, %q) = %q, want %q", tt.name, tt.fallback, got, tt.want)
		}
	}
}

// TestEmitProgressThrottle verifies rapid updates are coalesced and that
// completion updates always pass.
func TestEmitProgressThrottle(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)

	b := downloader.NewBase("test", downloader.Deps{
		OnProgress: func(models.Progress) {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	})

	for i := 0; i < 50; i++ {
		b.EmitProgress(models.Progress{Percent: float64(i)})
	}
	b.EmitProgress(models.Progress{Percent: 100})

	mu.Lock()
	got := calls
	mu.Unlock()

	// First update passes, the 49 rapid followers are coalesced, and the
	// terminal 100% always passes.
	if got < 2 || got > 5 {
		t.Errorf("expected 2-5 delivered updates from 51 rapid emissions, got %d", got)
	}
}

func newTestStore(t *testing.T) *repo.Store {
	t.Helper()

	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("expected test database to open, got: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return repo.InitStores(db.DB)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("expected to read %q, got %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// TestFetchFileWritesAndFinalizes downloads a small payload and verifies the
// final file, the collision suffix, and that no partial files remain.
func TestFetchFileWritesAndFinalizes(t *testing.T) {
	t.Parallel()

	payload := []byte("coomerdl test payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	b := downloader.NewBase("test", downloader.Deps{})
	req := contracts.DownloadRequest{JobID: "job-1", URL: srv.URL, Dir: dir}
	item := models.MediaItem{URL: srv.URL + "/media/pic.jpg", Filename: "pic.jpg"}

	written, path, err := b.FetchFile(context.Background(), req, item)
	if err != nil {
		t.Fatalf("expected fetch to succeed, got %v", err)
	}
	if written != int64(len(payload)) {
		t.Errorf("expected %d bytes written, got %d", len(payload), written)
	}
	if filepath.Base(path) != "pic.jpg" {
		t.Errorf("expected final name pic.jpg, got %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected final file to exist, got %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("expected payload %q, got %q", payload, data)
	}

	// Same filename again lands beside the first with a numeric suffix.
	_, path2, err := b.FetchFile(context.Background(), req, item)
	if err != nil {
		t.Fatalf("expected second fetch to succeed, got %v", err)
	}
	if filepath.Base(path2) != "pic (1).jpg" {
		t.Errorf("expected collision name %q, got %q", "pic (1).jpg", filepath.Base(path2))
	}

	for _, name := range listDir(t, dir) {
		if filepath.Ext(name) == consts.PartTag {
			t.Errorf("expected no partial files after success, found %q", name)
		}
	}
}

// TestFetchFileStatusError verifies non-2xx responses surface as permanent
// request errors and leave nothing on disk.
func TestFetchFileStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	b := downloader.NewBase("test", downloader.Deps{})
	req := contracts.DownloadRequest{JobID: "job-1", URL: srv.URL, Dir: dir}

	_, _, err := b.FetchFile(context.Background(), req, models.MediaItem{URL: srv.URL + "/gone.jpg", Filename: "gone.jpg"})
	if err == nil {
		t.Fatal("expected an error for a 404 response, got nil")
	}

	var statusErr *net.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", statusErr.StatusCode)
	}
	if kind := net.Classify(err); kind != consts.ErrKindPermanent {
		t.Errorf("expected classification %q, got %q", consts.ErrKindPermanent, kind)
	}

	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("expected empty download dir after failure, got %v", names)
	}
}

// TestFetchFileCancelRemovesPartial cancels mid-transfer and verifies the
// partial file is removed.
func TestFetchFileCancelRemovesPartial(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64*1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the transfer open until the client aborts.
		<-r.Context().Done()
	}))
	defer srv.Close()

	var once sync.Once
	started := make(chan struct{})

	b := downloader.NewBase("test", downloader.Deps{
		OnProgress: func(models.Progress) {
			once.Do(func() { close(started) })
		},
	})

	ctx, cancel := b.BindContext(context.Background())
	defer cancel()

	dir := t.TempDir()
	req := contracts.DownloadRequest{JobID: "job-1", URL: srv.URL, Dir: dir}

	errCh := make(chan error, 1)
	go func() {
		_, _, err := b.FetchFile(ctx, req, models.MediaItem{URL: srv.URL + "/big.mp4", Filename: "big.mp4"})
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("expected transfer to start within 5s")
	}

	b.RequestCancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected cancellation to abort the transfer within 5s")
	}

	if !b.Cancelled() {
		t.Error("expected Cancelled() to report true after RequestCancel")
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("expected partial file to be removed after cancel, got %v", names)
	}
}

// TestFetchFileStalledRead verifies a silent connection trips the read
// watchdog rather than hanging forever.
func TestFetchFileStalledRead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Go silent without closing.
		<-r.Context().Done()
	}))
	defer srv.Close()

	b := downloader.NewBase("test", downloader.Deps{
		Settings: models.DownloadSettings{ReadTimeout: 200 * time.Millisecond},
	})

	dir := t.TempDir()
	req := contracts.DownloadRequest{JobID: "job-1", URL: srv.URL, Dir: dir}

	done := make(chan error, 1)
	go func() {
		_, _, err := b.FetchFile(context.Background(), req, models.MediaItem{URL: srv.URL + "/stall.bin", Filename: "stall.bin"})
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a stall error, got nil")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context.DeadlineExceeded cause, got %v", err)
		}
		if kind := net.Classify(err); kind != consts.ErrKindTransient {
			t.Errorf("expected classification %q, got %q", consts.ErrKindTransient, kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected the watchdog to abort the stalled read within 5s")
	}

	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("expected partial file to be removed after stall, got %v", names)
	}
}

// TestFetchItemBookkeeping runs mixed items through FetchItem and checks the
// result tallies, the dedup store, and that failures do not abort the batch.
func TestFetchItemBookkeeping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("media-bytes"))
	}))
	defer srv.Close()

	store := newTestStore(t)
	dupURL := srv.URL + "/seen.jpg"
	if err := store.DownloadStore().AddDownload(&models.DownloadRecord{
		MediaURL: dupURL,
		FilePath: "/elsewhere/seen.jpg",
	}); err != nil {
		t.Fatalf("expected seeding the dedup store to succeed, got %v", err)
	}

	b := downloader.NewBase("test", downloader.Deps{
		Settings: models.DownloadSettings{ExcludeExts: []string{"zip"}},
		Store:    store.DownloadStore(),
	})

	dir := t.TempDir()
	req := contracts.DownloadRequest{JobID: "job-1", URL: srv.URL, Dir: dir}
	items := []models.MediaItem{
		{URL: srv.URL + "/fresh.jpg", Filename: "fresh.jpg"},
		{URL: srv.URL + "/skipme.zip", Filename: "skipme.zip"},
		{URL: dupURL, Filename: "seen.jpg"},
		{URL: srv.URL + "/missing.jpg", Filename: "missing.jpg"},
	}

	var res models.DownloadResult
	for _, item := range items {
		if err := b.FetchItem(context.Background(), req, item, &res); err != nil {
			t.Fatalf("expected FetchItem(%q) to continue the batch, got %v", item.URL, err)
		}
	}

	if res.TotalCount != 4 {
		t.Errorf("expected total 4, got %d", res.TotalCount)
	}
	if res.CompletedCount != 1 {
		t.Errorf("expected 1 completed, got %d", res.CompletedCount)
	}
	if len(res.SkippedItems) != 2 {
		t.Errorf("expected 2 skipped, got %d (%+v)", len(res.SkippedItems), res.SkippedItems)
	}
	if len(res.FailedItems) != 1 {
		t.Errorf("expected 1 failed, got %d (%+v)", len(res.FailedItems), res.FailedItems)
	}
	if res.TotalBytes != int64(len("media-bytes")) {
		t.Errorf("expected %d total bytes, got %d", len("media-bytes"), res.TotalBytes)
	}

	seen, err := store.DownloadStore().HasDownloaded(srv.URL + "/fresh.jpg")
	if err != nil {
		t.Fatalf("expected dedup lookup to succeed, got %v", err)
	}
	if !seen {
		t.Error("expected the fetched item to be recorded for dedup")
	}
}
