// Package gallerydl adapts the external gallery-dl engine to the downloader
// contract for the long tail of gallery hosts.
package gallerydl

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// Downloader shells out to gallery-dl for hosts it covers.
type Downloader struct {
	*downloader.Base
}

// New builds a fresh gallery-dl adapter for one job.
func New(deps downloader.Deps) *Downloader {
	return &Downloader{Base: downloader.NewBase("gallery-dl", deps)}
}

// SupportsURL reports whether the URL's host is a known gallery host.
func (d *Downloader) SupportsURL(rawURL string) bool {
	domain, err := net.CanonicalDomain(rawURL)
	if err != nil {
		return false
	}
	return consts.GalleryHostMap[domain]
}

// Download runs gallery-dl against the URL and tallies the file paths it
// prints.
func (d *Downloader) Download(ctx context.Context, req contracts.DownloadRequest) (*models.DownloadResult, error) {
	ctx, cancel := d.BindContext(ctx)
	defer cancel()

	start := time.Now()
	res := &models.DownloadResult{}

	cmd, cleanup, err := d.buildCommand(ctx, req)
	if err != nil {
		res.ElapsedTime = time.Since(start)
		return res, err
	}
	defer cleanup()

	runErr := d.RunEngine(ctx, cmd, func(line string) {
		d.parseLine(line, req, res)
	})

	res.ElapsedTime = time.Since(start)
	if runErr != nil {
		return res, runErr
	}
	if res.CompletedCount == 0 && len(res.SkippedItems) == 0 {
		return res, &net.ParseError{Site: d.SiteName(), URL: req.URL, Msg: "engine finished without reporting any files"}
	}

	res.Success = len(res.FailedItems) == 0
	return res, nil
}

// buildCommand assembles the gallery-dl invocation. The returned cleanup
// removes the exported cookie file, if any.
func (d *Downloader) buildCommand(ctx context.Context, req contracts.DownloadRequest) (*exec.Cmd, func(), error) {
	s := d.Settings()
	args := make([]string, 0, 12)

	args = append(args, consts.GalleryDLDest, req.Dir)

	cleanup := func() {}
	if cm := d.Cookies(); cm != nil {
		cookiePath := filepath.Join(os.TempDir(), "coomerdl_cookies_"+req.JobID+".txt")
		wrote, err := cm.ExportNetscape(ctx, req.URL, cookiePath)
		if err != nil {
			logging.W("[%s] Cookie export failed, continuing without: %v", d.SiteName(), err)
		} else if wrote {
			args = append(args, consts.GalleryDLCookies, cookiePath)
			cleanup = func() {
				if err := os.Remove(cookiePath); err != nil && !os.IsNotExist(err) {
					logging.E("Failed to remove cookie file %q: %v", cookiePath, err)
				}
			}
		}
	} else if s.CookieSource != "" {
		args = append(args, consts.GalleryDLCookiesFromBrowser, s.CookieSource)
	}

	if s.BandwidthLimit > 0 {
		args = append(args, consts.GalleryDLLimitRate, strconv.FormatInt(s.BandwidthLimit, 10))
	}

	// Target URL goes last
	args = append(args, req.URL)

	binary := s.GalleryDLPath
	if binary == "" {
		binary = consts.GalleryDLBinary
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	logging.D("[%s] Built command: %s", d.SiteName(), cmd.String())
	return cmd, cleanup, nil
}

// parseLine folds one engine output line into the result. gallery-dl prints
// one path per downloaded file, prefixes already-present files with "# ",
// and tags log lines with a bracketed module name.
func (d *Downloader) parseLine(line string, req contracts.DownloadRequest, res *models.DownloadResult) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "[") {
		logging.D("[%s] %s", d.SiteName(), line)
		return
	}

	if skipped, ok := strings.CutPrefix(line, "# "); ok {
		res.TotalCount++
		res.SkippedItems = append(res.SkippedItems, models.SkippedItem{
			Item:   models.MediaItem{URL: req.URL, Filename: filepath.Base(skipped)},
			Reason: "already downloaded",
		})
		return
	}

	info, err := os.Stat(line)
	if err != nil || info.IsDir() {
		logging.D("[%s] Ignoring unparseable output line %q", d.SiteName(), line)
		return
	}

	res.TotalCount++
	res.CompletedCount++
	res.TotalBytes += info.Size()

	d.EmitProgress(models.Progress{
		JobID:     req.JobID,
		URL:       req.URL,
		Filename:  filepath.Base(line),
		BytesDone: res.TotalBytes,
	})
}
