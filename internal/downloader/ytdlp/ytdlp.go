// Package ytdlp adapts the external yt-dlp engine to the downloader
// contract for video hosts.
package ytdlp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
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

// progressRegex matches the percentage in yt-dlp's --newline progress lines,
// e.g. "[download]  42.3% of 10.00MiB at 2.00MiB/s ETA 00:05".
var progressRegex = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

const fragmentRetries = "3"

// Downloader shells out to yt-dlp for video hosts.
type Downloader struct {
	*downloader.Base
}

// New builds a fresh yt-dlp adapter for one job.
func New(deps downloader.Deps) *Downloader {
	return &Downloader{Base: downloader.NewBase("yt-dlp", deps)}
}

// SupportsURL reports whether the URL's host is a known video host.
func (d *Downloader) SupportsURL(rawURL string) bool {
	domain, err := net.CanonicalDomain(rawURL)
	if err != nil {
		return false
	}
	return consts.VideoHostMap[domain]
}

// Download runs yt-dlp against the URL, parsing progress lines and the
// printed final file path.
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
	if res.CompletedCount == 0 {
		return res, &net.ParseError{Site: d.SiteName(), URL: req.URL, Msg: "engine finished without reporting an output file"}
	}

	res.Success = true
	return res, nil
}

// buildCommand assembles the yt-dlp invocation. The returned cleanup removes
// the exported cookie file, if any.
func (d *Downloader) buildCommand(ctx context.Context, req contracts.DownloadRequest) (*exec.Cmd, func(), error) {
	s := d.Settings()
	args := make([]string, 0, 16)

	args = append(args, consts.YtDLPNoPlaylist, consts.YtDLPNewline)

	// Output location
	args = append(args, consts.YtDLPOutput, filepath.Join(req.Dir, "%(title)s.%(ext)s"))

	// Print filename to console upon completion
	args = append(args, consts.YtDLPPrintFinal, consts.YtDLPFinalPathSpec)

	cleanup := func() {}
	if cm := d.Cookies(); cm != nil {
		cookiePath := filepath.Join(os.TempDir(), "coomerdl_cookies_"+req.JobID+".txt")
		wrote, err := cm.ExportNetscape(ctx, req.URL, cookiePath)
		if err != nil {
			logging.W("[%s] Cookie export failed, continuing without: %v", d.SiteName(), err)
		} else if wrote {
			args = append(args, consts.YtDLPCookies, cookiePath)
			cleanup = func() {
				if err := os.Remove(cookiePath); err != nil && !os.IsNotExist(err) {
					logging.E("Failed to remove cookie file %q: %v", cookiePath, err)
				}
			}
		}
	} else if s.CookieSource != "" {
		args = append(args, consts.YtDLPCookiesFromBrowser, s.CookieSource)
	}

	if s.BandwidthLimit > 0 {
		args = append(args, consts.YtDLPLimitRate, strconv.FormatInt(s.BandwidthLimit, 10))
	}
	if s.ReadTimeout > 0 {
		args = append(args, consts.YtDLPSocketTimeout, strconv.Itoa(int(s.ReadTimeout.Seconds())))
	}
	args = append(args, consts.YtDLPRetries, fragmentRetries)

	// Target URL goes last
	args = append(args, req.URL)

	binary := s.YtDLPPath
	if binary == "" {
		binary = consts.YtDLPBinary
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	logging.D("[%s] Built command: %s", d.SiteName(), cmd.String())
	return cmd, cleanup, nil
}

// parseLine folds one engine output line into the result: progress
// percentages stream to the observer, and the printed absolute path marks
// the finished file.
func (d *Downloader) parseLine(line string, req contracts.DownloadRequest, res *models.DownloadResult) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if matches := progressRegex.FindStringSubmatch(line); len(matches) == 2 {
		if pct, err := strconv.ParseFloat(matches[1], 64); err == nil {
			// Completion is signaled by the printed path, not the
			// progress stream.
			if pct >= 100 {
				pct = 99.9
			}
			d.EmitProgress(models.Progress{
				JobID:   req.JobID,
				URL:     req.URL,
				Percent: pct,
			})
		}
		return
	}

	if !strings.HasPrefix(line, string(os.PathSeparator)) {
		logging.D("[%s] %s", d.SiteName(), line)
		return
	}

	info, err := os.Stat(line)
	if err != nil || info.IsDir() {
		logging.D("[%s] Ignoring path-like output line %q", d.SiteName(), line)
		return
	}

	res.TotalCount++
	res.CompletedCount++
	res.TotalBytes += info.Size()

	d.EmitProgress(models.Progress{
		JobID:      req.JobID,
		URL:        req.URL,
		Filename:   filepath.Base(line),
		Percent:    100,
		BytesDone:  res.TotalBytes,
		TotalBytes: res.TotalBytes,
	})
}
