package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/ytdlp"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
)

func TestSupportsURL(t *testing.T) {
	t.Parallel()

	d := ytdlp.New(downloader.Deps{})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc123", true},
		{"https://youtu.be/abc123", true},
		{"https://vimeo.com/12345", true},
		{"https://rumble.com/v1abc-test.html", true},
		{"https://example.com/video.mp4", false},
		{"https://coomer.su/onlyfans/user/alice", false},
	}

	for _, tt := range tests {
		if got := d.SupportsURL(tt.url); got != tt.want {
			t.Errorf("SupportsURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

// writeFakeEngine installs an executable shell script standing in for the
// real binary.
func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("expected fake engine to be written, got %v", err)
	}
	return path
}

// TestDownloadParsesEngineOutput drives the adapter with a scripted engine:
// progress lines stream to the observer and the printed path is tallied.
func TestDownloadParsesEngineOutput(t *testing.T) {
	t.Parallel()

	// $4 is the -o template; the download dir is its parent.
	engine := writeFakeEngine(t, `
dir=$(dirname "$4")
echo "[youtube] Extracting URL"
echo "[download]  10.5% of 10.00MiB at 1.00MiB/s ETA 00:09"
echo "[download] 100% of 10.00MiB in 00:10"
printf 'video-bytes' > "$dir/video.mp4"
echo "$dir/video.mp4"
`)

	var (
		mu       sync.Mutex
		percents []float64
	)

	dir := t.TempDir()
	d := ytdlp.New(downloader.Deps{
		Settings: models.DownloadSettings{YtDLPPath: engine},
		OnProgress: func(p models.Progress) {
			mu.Lock()
			percents = append(percents, p.Percent)
			mu.Unlock()
		},
	})

	res, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-1",
		URL:   "https://www.youtube.com/watch?v=abc123",
		Dir:   dir,
	})
	if err != nil {
		t.Fatalf("expected download to succeed, got %v", err)
	}

	if res.CompletedCount != 1 {
		t.Errorf("expected 1 completed file, got %d", res.CompletedCount)
	}
	if want := int64(len("video-bytes")); res.TotalBytes != want {
		t.Errorf("expected %d total bytes, got %d", want, res.TotalBytes)
	}
	if !res.Success {
		t.Error("expected Success, result reported failure")
	}
	if _, err := os.Stat(filepath.Join(dir, "video.mp4")); err != nil {
		t.Errorf("expected video.mp4 on disk, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(percents) == 0 {
		t.Fatal("expected progress updates, got none")
	}
	final := percents[len(percents)-1]
	if final != 100 {
		t.Errorf("expected final progress 100, got %v", final)
	}
	for _, pct := range percents[:len(percents)-1] {
		if pct >= 100 {
			t.Errorf("expected only the file-complete update to report 100, got %v mid-stream", pct)
		}
	}
}

// TestDownloadNoOutputFile reports engines that exit cleanly without a file
// as parse failures.
func TestDownloadNoOutputFile(t *testing.T) {
	t.Parallel()

	engine := writeFakeEngine(t, `echo "[youtube] nothing to do"`)

	d := ytdlp.New(downloader.Deps{
		Settings: models.DownloadSettings{YtDLPPath: engine},
	})

	_, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-2",
		URL:   "https://www.youtube.com/watch?v=abc123",
		Dir:   t.TempDir(),
	})

	var parseErr *net.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

// TestDownloadEngineFailure surfaces a non-zero exit as an error carrying
// the exit state.
func TestDownloadEngineFailure(t *testing.T) {
	t.Parallel()

	engine := writeFakeEngine(t, `
echo "ERROR: unable to download video" >&2
exit 1
`)

	d := ytdlp.New(downloader.Deps{
		Settings: models.DownloadSettings{YtDLPPath: engine},
	})

	_, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-3",
		URL:   "https://www.youtube.com/watch?v=abc123",
		Dir:   t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected an error from a failing engine, got nil")
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError in chain, got %T: %v", err, err)
	}
}

// TestDownloadMissingBinary classifies an absent engine binary as permanent.
func TestDownloadMissingBinary(t *testing.T) {
	t.Parallel()

	d := ytdlp.New(downloader.Deps{
		Settings: models.DownloadSettings{YtDLPPath: "definitely-not-a-real-binary-xyz"},
	})

	_, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-4",
		URL:   "https://www.youtube.com/watch?v=abc123",
		Dir:   t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected an error for a missing binary, got nil")
	}
	if kind := net.Classify(err); kind != consts.ErrKindPermanent {
		t.Errorf("expected classification %q, got %q", consts.ErrKindPermanent, kind)
	}
}

// TestDownloadCancelKillsEngine cancels mid-run and verifies the adapter
// returns promptly with a cancellation error.
func TestDownloadCancelKillsEngine(t *testing.T) {
	t.Parallel()

	engine := writeFakeEngine(t, `
echo "[download]   1.0% of 10.00MiB at 1.00MiB/s ETA 01:00"
sleep 30
`)

	var once sync.Once
	started := make(chan struct{})

	d := ytdlp.New(downloader.Deps{
		Settings: models.DownloadSettings{YtDLPPath: engine},
		OnProgress: func(models.Progress) {
			once.Do(func() { close(started) })
		},
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := d.Download(context.Background(), contracts.DownloadRequest{
			JobID: "job-5",
			URL:   "https://www.youtube.com/watch?v=abc123",
			Dir:   t.TempDir(),
		})
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("expected the engine to start within 5s")
	}

	d.RequestCancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected cancellation to end the engine within 5s, not after its 30s sleep")
	}
}
