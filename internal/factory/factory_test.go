package factory_test

import (
	"testing"

	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/factory"
)

// TestRoutingOrder checks each tier claims its URLs and earlier tiers win.
func TestRoutingOrder(t *testing.T) {
	t.Parallel()

	f := factory.New(downloader.Deps{})

	tests := []struct {
		url      string
		wantSite string
	}{
		{"https://coomer.su/onlyfans/user/alice", "partysite"},
		{"https://kemono.party/patreon/user/99", "partysite"},
		{"https://www.erome.com/a/AbCd1234", "erome"},
		{"https://bunkr.is/a/album42", "bunkr"},
		{"https://imgur.com/gallery/abc", "gallery-dl"},
		{"https://danbooru.donmai.us/posts/1", "gallery-dl"},
		{"https://www.youtube.com/watch?v=abc", "yt-dlp"},
		{"https://vimeo.com/1234", "yt-dlp"},
		{"https://random-blog.example.com/post/7", "generic"},
	}

	for _, tt := range tests {
		d, ok := f.GetDownloader(tt.url)
		if !ok {
			t.Errorf("GetDownloader(%q) found no variant, want %q", tt.url, tt.wantSite)
			continue
		}
		if d.SiteName() != tt.wantSite {
			t.Errorf("GetDownloader(%q) routed to %q, want %q", tt.url, d.SiteName(), tt.wantSite)
		}
	}
}

// TestUnsupportedURL reports no match for non-web URLs.
func TestUnsupportedURL(t *testing.T) {
	t.Parallel()

	f := factory.New(downloader.Deps{})

	for _, raw := range []string{"ftp://files.example.com/a.zip", "not a url", "file:///etc/passwd"} {
		if d, ok := f.GetDownloader(raw); ok {
			t.Errorf("GetDownloader(%q) = %q, want no match", raw, d.SiteName())
		}
	}
}

// TestFreshInstancePerJob verifies cancellation state does not leak between
// jobs routed to the same variant.
func TestFreshInstancePerJob(t *testing.T) {
	t.Parallel()

	f := factory.New(downloader.Deps{})
	url := "https://coomer.su/onlyfans/user/alice"

	first, ok := f.GetDownloader(url)
	if !ok {
		t.Fatalf("expected a variant for %q", url)
	}
	first.RequestCancel()
	if !first.Cancelled() {
		t.Fatal("expected the first instance to report cancellation")
	}

	second, ok := f.GetDownloader(url)
	if !ok {
		t.Fatalf("expected a variant for %q", url)
	}
	if second == first {
		t.Fatal("expected a fresh instance per lookup")
	}
	if second.Cancelled() {
		t.Error("expected the fresh instance to carry no cancellation state")
	}
}
