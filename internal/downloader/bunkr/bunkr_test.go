package bunkr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/bunkr"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
)

func TestSupportsURL(t *testing.T) {
	t.Parallel()

	d := bunkr.New(downloader.Deps{})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://bunkr.is/a/album123", true},
		{"https://bunkr.si/a/album123", true},
		{"https://bunkrr.su/v/clip456", true},
		{"https://bunkr.la/i/pic789", true},
		{"https://bunkr.is/", false},
		{"https://bunkr.is/a/", false},
		{"https://example.com/a/album123", false},
	}

	for _, tt := range tests {
		if got := d.SupportsURL(tt.url); got != tt.want {
			t.Errorf("SupportsURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

// TestDownloadAlbum walks album -> file pages -> CDN sources, covering the
// thumbnail path rewrite.
func TestDownloadAlbum(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a/test", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<div class="grid-images">
  <a href="/v/clip1">clip one</a>
  <a href="/i/pic1">pic one</a>
  <a href="/a/other">nested album ignored</a>
  <a href="/v/clip1">duplicate ignored</a>
</div>
</body></html>`))
	})
	mux.HandleFunc("/v/clip1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<video controls><source src="/media/clip1.mp4" type="video/mp4"></video>
</body></html>`))
	})
	mux.HandleFunc("/i/pic1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<figure><img src="/thumbs/pic1.jpg"></figure>
</body></html>`))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "cdn-%s", filepath.Base(r.URL.Path))
	})
	mux.HandleFunc("/pic1.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("cdn-pic1.jpg"))
	})
	mux.HandleFunc("/thumbs/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("thumbnail fetched at %s; expected normalized CDN path", r.URL.Path)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	d := bunkr.New(downloader.Deps{})

	res, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-1",
		URL:   srv.URL + "/a/test",
		Dir:   dir,
	})
	if err != nil {
		t.Fatalf("expected download to succeed, got %v", err)
	}

	if res.CompletedCount != 2 {
		t.Errorf("expected 2 items downloaded, got %d", res.CompletedCount)
	}
	if len(res.FailedItems) != 0 {
		t.Errorf("expected no failures, got %+v", res.FailedItems)
	}

	for _, name := range []string{"clip1.mp4", "pic1.jpg"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("expected %q on disk, got %v", name, err)
		}
		if string(data) != "cdn-"+name {
			t.Errorf("expected %q content %q, got %q", name, "cdn-"+name, data)
		}
	}
}

// TestDownloadSingleFilePage fetches a /v/ URL directly without an album.
func TestDownloadSingleFilePage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v/solo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><video src="/media/solo.mp4"></video></body></html>`))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("solo-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	d := bunkr.New(downloader.Deps{})

	res, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-2",
		URL:   srv.URL + "/v/solo",
		Dir:   dir,
	})
	if err != nil {
		t.Fatalf("expected download to succeed, got %v", err)
	}
	if res.CompletedCount != 1 {
		t.Errorf("expected 1 item downloaded, got %d", res.CompletedCount)
	}
	if _, err := os.Stat(filepath.Join(dir, "solo.mp4")); err != nil {
		t.Errorf("expected solo.mp4 on disk, got %v", err)
	}
}

// TestDownloadDeadFilePage records an unresolvable file page as a failed
// item without aborting the album.
func TestDownloadDeadFilePage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a/mixed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<a href="/v/ok">ok</a>
<a href="/v/dead">dead</a>
</body></html>`))
	})
	mux.HandleFunc("/v/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><video src="/media/ok.mp4"></video></body></html>`))
	})
	mux.HandleFunc("/v/dead", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>file removed</p></body></html>`))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := bunkr.New(downloader.Deps{})
	res, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-3",
		URL:   srv.URL + "/a/mixed",
		Dir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("expected album with one dead page to continue, got %v", err)
	}

	if res.CompletedCount != 1 {
		t.Errorf("expected 1 item downloaded, got %d", res.CompletedCount)
	}
	if len(res.FailedItems) != 1 {
		t.Fatalf("expected 1 failed item, got %d", len(res.FailedItems))
	}
	if res.Success {
		t.Error("expected Success=false when an item failed")
	}
}

// TestDownloadEmptyAlbum reports an album without file links as a parse
// failure.
func TestDownloadEmptyAlbum(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a/empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>gone</p></body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := bunkr.New(downloader.Deps{})
	_, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-4",
		URL:   srv.URL + "/a/empty",
		Dir:   t.TempDir(),
	})

	var parseErr *net.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}
