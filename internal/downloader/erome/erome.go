// Package erome downloads albums from erome.com by scraping the album page
// for image and video sources.
package erome

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// Downloader scrapes one erome album page.
type Downloader struct {
	*downloader.Base
}

// New builds a fresh erome downloader for one job.
func New(deps downloader.Deps) *Downloader {
	return &Downloader{Base: downloader.NewBase("erome", deps)}
}

// SupportsURL reports whether the URL is an erome album.
func (d *Downloader) SupportsURL(rawURL string) bool {
	domain, err := net.CanonicalDomain(rawURL)
	if err != nil || domain != "erome.com" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/a/") && len(u.Path) > len("/a/")
}

// Download scrapes the album page and fetches every media source on it.
func (d *Downloader) Download(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
	ctx, cancel := d.BindContext(ctx)
	defer cancel()

	start := time.Now()
	res := &models.DownloadResult{}

	items, err := d.scrapeAlbum(ctx, req.URL)
	if err != nil {
		res.ElapsedTime = time.Since(start)
		return res, err
	}
	logging.I("[%s] Found %d media item(s) in album", d.SiteName(), len(items))

	for _, item := range items {
		if err := d.FetchItem(ctx, req, item, res); err != nil {
			res.ElapsedTime = time.Since(start)
			return res, err
		}
	}

	res.Success = len(res.FailedItems) == 0
	res.ElapsedTime = time.Since(start)
	return res, nil
}

// scrapeAlbum collects the album's image and video URLs in page order.
func (d *Downloader) scrapeAlbum(ctx context.Context, albumURL string) ([]models.MediaItem, error) {
	resp, err := d.Get(ctx, albumURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.E("Failed to close body for %q: %v", albumURL, closeErr)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &net.ParseError{Site: d.SiteName(), URL: albumURL, Msg: err.Error()}
	}

	base := resp.Request.URL

	var items []models.MediaItem
	seen := make(map[string]struct{})

	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		abs := resolveRef(base, src)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		items = append(items, models.MediaItem{
			URL:      abs,
			Filename: fileNameOf(abs),
		})
	}

	doc.Find("div.media-group img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok {
			add(src)
			return
		}
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
	})

	doc.Find("div.media-group video source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
	})

	if len(items) == 0 {
		return nil, &net.ParseError{Site: d.SiteName(), URL: albumURL, Msg: "no media sources found on album page"}
	}
	return items, nil
}

// resolveRef makes a scraped src absolute against the page URL.
func resolveRef(base *url.URL, ref string) string {
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

func fileNameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(u.Path)
}
