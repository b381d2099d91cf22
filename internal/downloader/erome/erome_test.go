package erome_test

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
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/erome"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
)

func TestSupportsURL(t *testing.T) {
	t.Parallel()

	d := erome.New(downloader.Deps{})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.erome.com/a/AbCd1234", true},
		{"https://erome.com/a/xyz", true},
		{"https://www.erome.com/profile", false},
		{"https://www.erome.com/a/", false},
		{"https://example.com/a/AbCd1234", false},
	}

	for _, tt := range tests {
		if got := d.SupportsURL(tt.url); got != tt.want {
			t.Errorf("SupportsURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

const albumPage = `<!DOCTYPE html>
<html><body>
<div class="media-group">
  <img class="img-front" data-src="/media/one.jpg" src="/thumbs/one-small.jpg">
</div>
<div class="media-group">
  <video controls><source src="/media/clip.mp4" type="video/mp4"></video>
</div>
<div class="media-group">
  <img src="/media/two.png">
</div>
</body></html>`

// TestDownloadAlbum scrapes a canned album page and verifies the media-group
// sources land on disk, with data-src preferred over the thumbnail src.
func TestDownloadAlbum(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a/test", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(albumPage))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "media-%s", filepath.Base(r.URL.Path))
	})
	mux.HandleFunc("/thumbs/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("thumbnail fetched at %s; expected full-size data-src", r.URL.Path)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	d := erome.New(downloader.Deps{})

	res, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-1",
		URL:   srv.URL + "/a/test",
		Dir:   dir,
	})
	if err != nil {
		t.Fatalf("expected download to succeed, got %v", err)
	}

	if res.CompletedCount != 3 {
		t.Errorf("expected 3 items downloaded, got %d", res.CompletedCount)
	}
	if !res.Success {
		t.Error("expected Success, result reported failure")
	}

	for _, name := range []string{"one.jpg", "clip.mp4", "two.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %q on disk, got %v", name, err)
		}
	}
}

// TestDownloadEmptyAlbum reports a page without media as a parse failure.
func TestDownloadEmptyAlbum(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a/empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := erome.New(downloader.Deps{})
	_, err := d.Download(context.Background(), contracts.DownloadRequest{
		JobID: "job-2",
		URL:   srv.URL + "/a/empty",
		Dir:   t.TempDir(),
	})

	var parseErr *net.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}
