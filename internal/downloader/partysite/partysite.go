// Package partysite downloads creator content from kemono/coomer-style
// party hosts through their JSON API.
package partysite

import (
	"context"
	"fmt"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// partyHosts are the canonical domains this variant claims. Mirror TLDs
// fold into these before the lookup.
var partyHosts = map[string]struct{}{
	"coomer.su": {},
	"kemono.su": {},
}

// Downloader scrapes a creator profile or a single post through the party
// host JSON API.
type Downloader struct {
	*downloader.Base
}

// New builds a fresh party-site downloader for one job.
func New(deps downloader.Deps) *Downloader {
	return &Downloader{Base: downloader.NewBase("partysite", deps)}
}

// SupportsURL reports whether the URL points at a known party host.
func (d *Downloader) SupportsURL(rawURL string) bool {
	domain, err := net.CanonicalDomain(rawURL)
	if err != nil {
		return false
	}
	if _, ok := partyHosts[domain]; !ok {
		return false
	}
	_, err = parseTarget(rawURL)
	return err == nil
}

// Download enumerates the target's posts and fetches every media item.
func (d *Downloader) Download(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
	ctx, cancel := d.BindContext(ctx)
	defer cancel()

	start := time.Now()
	res := &models.DownloadResult{}

	t, err := parseTarget(req.URL)
	if err != nil {
		return res, err
	}

	posts, err := d.listPosts(ctx, t)
	if err != nil {
		res.ElapsedTime = time.Since(start)
		return res, err
	}
	logging.I("[%s] Found %d post(s) for %s/%s", d.SiteName(), len(posts), t.service, t.userID)

	for _, p := range posts {
		items := p.mediaItems(t)

		if reason := d.FilterDate(p.publishedTime()); reason != "" {
			logging.D("[%s] Skipping post %s: %s", d.SiteName(), p.ID, reason)
			for _, item := range items {
				res.TotalCount++
				res.SkippedItems = append(res.SkippedItems, models.SkippedItem{Item: item, Reason: reason})
			}
			continue
		}

		for _, item := range items {
			if err := d.FetchItem(ctx, req, item, res); err != nil {
				res.ElapsedTime = time.Since(start)
				return res, err
			}
		}
	}

	if res.TotalCount == 0 {
		res.ElapsedTime = time.Since(start)
		return res, &net.ParseError{
			Site: d.SiteName(),
			URL:  req.URL,
			Msg:  fmt.Sprintf("no media found across %d post(s)", len(posts)),
		}
	}

	res.Success = len(res.FailedItems) == 0
	res.ElapsedTime = time.Since(start)
	return res, nil
}
