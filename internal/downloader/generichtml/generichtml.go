// Package generichtml is the catch-all downloader: it visits a single page,
// harvests links to media files by extension, and fetches them with the
// shared HTTP machinery.
package generichtml

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// mediaAttrs are the element/attribute pairs harvested from the page.
var mediaAttrs = [...]struct {
	selector string
	attr     string
}{
	{"a[href]", "href"},
	{"img[src]", "src"},
	{"img[data-src]", "data-src"},
	{"source[src]", "src"},
	{"video[src]", "src"},
}

// Downloader scrapes one arbitrary web page for direct media links.
type Downloader struct {
	*downloader.Base
}

// New builds a fresh generic downloader for one job.
func New(deps downloader.Deps) *Downloader {
	return &Downloader{Base: downloader.NewBase("generic", deps)}
}

// SupportsURL accepts any well-formed http(s) URL. Registered last, this
// makes the variant the fallback for hosts nothing else claims.
func (d *Downloader) SupportsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download harvests media links from the page and fetches each one.
func (d *Downloader) Download(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
	ctx, cancel := d.BindContext(ctx)
	defer cancel()

	start := time.Now()
	res := &models.DownloadResult{}

	items, err := d.harvest(ctx, req.URL)
	if err != nil {
		res.ElapsedTime = time.Since(start)
		return res, err
	}
	logging.I("[%s] Found %d media link(s) on page", d.SiteName(), len(items))

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

// harvest visits the page once and collects direct media links in document
// order.
func (d *Downloader) harvest(ctx context.Context, pageURL string) ([]models.MediaItem, error) {
	collector := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(downloader.UserAgent),
	)
	collector.SetRequestTimeout(consts.ScraperTimeout)

	if cm := d.Cookies(); cm != nil {
		if cookies, err := cm.GetCookies(ctx, pageURL); err == nil && len(cookies) > 0 {
			if err := collector.SetCookies(pageURL, cookies); err != nil {
				logging.D("[%s] Failed to set cookies for %q: %v", d.SiteName(), pageURL, err)
			}
		}
	}

	// Callbacks run on the collector's goroutines; mu guards everything
	// they touch until Wait returns.
	var (
		mu       sync.Mutex
		items    []models.MediaItem
		seen     = make(map[string]struct{})
		visitErr error
	)

	addLink := func(e *colly.HTMLElement, attr string) {
		link := e.Request.AbsoluteURL(strings.TrimSpace(e.Attr(attr)))
		if link == "" {
			return
		}
		name := fileNameOf(link)
		if downloader.ClassifyExt(name) == consts.FileTypeOther {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		items = append(items, models.MediaItem{URL: link, Filename: name})
	}

	for _, ma := range mediaAttrs {
		attr := ma.attr
		collector.OnHTML(ma.selector, func(e *colly.HTMLElement) {
			addLink(e, attr)
		})
	}

	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if r != nil && r.StatusCode > 0 {
			visitErr = &net.HTTPStatusError{
				StatusCode: r.StatusCode,
				Status:     fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode)),
			}
			return
		}
		visitErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("error visiting webpage %q: %w", pageURL, err)
	}
	collector.Wait()

	if visitErr != nil {
		return nil, fmt.Errorf("error visiting webpage %q: %w", pageURL, visitErr)
	}
	if err := d.CheckCancelled(ctx); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, &net.ParseError{Site: d.SiteName(), URL: pageURL, Msg: "no media links found on page"}
	}
	return items, nil
}

func fileNameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(u.Path)
}
