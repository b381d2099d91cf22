// Package bunkr downloads albums and single files from bunkr hosts. Album
// pages link to per-file pages; each file page carries the real CDN source.
package bunkr

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

// filePagePrefixes are the per-file page path shapes linked from albums.
var filePagePrefixes = [...]string{"/v/", "/i/", "/f/", "/d/"}

// Downloader scrapes bunkr album and file pages.
type Downloader struct {
	*downloader.Base
}

// New builds a fresh bunkr downloader for one job.
func New(deps downloader.Deps) *Downloader {
	return &Downloader{Base: downloader.NewBase("bunkr", deps)}
}

// SupportsURL reports whether the URL is a bunkr album or file page. Mirror
// TLDs fold into the canonical host first.
func (d *Downloader) SupportsURL(rawURL string) bool {
	domain, err := net.CanonicalDomain(rawURL)
	if err != nil || domain != "bunkr.is" {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.HasPrefix(u.Path, "/a/") && len(u.Path) > len("/a/") {
		return true
	}
	return isFilePage(u.Path)
}

func isFilePage(p string) bool {
	for _, prefix := range filePagePrefixes {
		if strings.HasPrefix(p, prefix) && len(p) > len(prefix) {
			return true
		}
	}
	return false
}

// Download resolves the album's file pages (or the single file page) to CDN
// sources and fetches them.
func (d *Downloader) Download(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
	ctx, cancel := d.BindContext(ctx)
	defer cancel()

	start := time.Now()
	res := &models.DownloadResult{}

	pages, err := d.collectFilePages(ctx, req.URL)
	if err != nil {
		res.ElapsedTime = time.Since(start)
		return res, err
	}
	logging.I("[%s] Found %d file page(s)", d.SiteName(), len(pages))

	for _, pageURL := range pages {
		if err := d.CheckCancelled(ctx); err != nil {
			res.ElapsedTime = time.Since(start)
			return res, err
		}

		item, err := d.resolveFilePage(ctx, pageURL)
		if err != nil {
			logging.W("[%s] Skipping file page %q: %v", d.SiteName(), pageURL, err)
			res.TotalCount++
			res.FailedItems = append(res.FailedItems, models.FailedItem{
				Item:   models.MediaItem{URL: pageURL},
				Reason: err.Error(),
			})
			continue
		}

		if err := d.FetchItem(ctx, req, item, res); err != nil {
			res.ElapsedTime = time.Since(start)
			return res, err
		}
	}

	res.Success = len(res.FailedItems) == 0
	res.ElapsedTime = time.Since(start)
	return res, nil
}

// collectFilePages returns the file pages reachable from the URL: the URL
// itself when it already is one, otherwise the album's linked pages.
func (d *Downloader) collectFilePages(ctx context.Context, rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &net.ParseError{Site: d.SiteName(), URL: rawURL, Msg: err.Error()}
	}
	if isFilePage(u.Path) {
		return []string{rawURL}, nil
	}

	doc, base, err := d.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var pages []string
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := base.Parse(strings.TrimSpace(href))
		if err != nil || !isFilePage(ref.Path) {
			return
		}
		abs := ref.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		pages = append(pages, abs)
	})

	if len(pages) == 0 {
		return nil, &net.ParseError{Site: d.SiteName(), URL: rawURL, Msg: "no file pages found on album page"}
	}
	return pages, nil
}

// resolveFilePage extracts the CDN media source from one file page.
func (d *Downloader) resolveFilePage(ctx context.Context, pageURL string) (models.MediaItem, error) {
	doc, base, err := d.fetchDocument(ctx, pageURL)
	if err != nil {
		return models.MediaItem{}, err
	}

	src := firstAttr(doc,
		"video source[src]", "src",
		"video[src]", "src",
		"figure img[src]", "src",
		"img.max-h-full[src]", "src",
	)
	if src == "" {
		return models.MediaItem{}, &net.ParseError{Site: d.SiteName(), URL: pageURL, Msg: "no media source on file page"}
	}

	ref, err := base.Parse(src)
	if err != nil {
		return models.MediaItem{}, &net.ParseError{Site: d.SiteName(), URL: pageURL, Msg: err.Error()}
	}

	mediaURL := normalizeCDN(ref)
	return models.MediaItem{
		URL:      mediaURL,
		Filename: fileNameOf(mediaURL),
	}, nil
}

func (d *Downloader) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	resp, err := d.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.E("Failed to close body for %q: %v", rawURL, closeErr)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, &net.ParseError{Site: d.SiteName(), URL: rawURL, Msg: err.Error()}
	}
	return doc, resp.Request.URL, nil
}

// firstAttr returns the attribute of the first selector that matches.
// Arguments alternate selector, attribute name.
func firstAttr(doc *goquery.Document, pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if val, ok := doc.Find(pairs[i]).First().Attr(pairs[i+1]); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// normalizeCDN rewrites thumbnail CDN links to their full-size form.
func normalizeCDN(u *url.URL) string {
	if strings.HasPrefix(u.Host, "thumbs.") {
		u.Host = "media-files." + strings.TrimPrefix(u.Host, "thumbs.")
	}
	u.Path = strings.Replace(u.Path, "/thumbs/", "/", 1)
	return u.String()
}

func fileNameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(u.Path)
}
