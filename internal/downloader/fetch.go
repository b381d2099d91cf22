package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdnet "net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

const fetchChunkSize = 32 * 1024

// UserAgent is sent on every request; several mirror hosts reject blank
// agents outright.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

func newHTTPClient(s models.DownloadSettings) *http.Client {
	connect := s.ConnectTimeout
	if connect <= 0 {
		connect = consts.ConnectTimeout
	}
	read := s.ReadTimeout
	if read <= 0 {
		read = consts.ReadTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&stdnet.Dialer{
				Timeout: connect,
			}).DialContext,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: read,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   8,
		},
	}
}

// Get issues a GET with the shared client, cookies, and a browser user
// agent. The caller owns the response body. Non-2xx statuses close the body
// and return an HTTPStatusError.
func (b *Base) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", net.ErrMalformedURL, rawURL, err)
	}

	req.Header.Set("User-Agent", UserAgent)
	if origin := originOf(req.URL); origin != "" {
		req.Header.Set("Referer", origin)
	}

	if b.deps.Cookies != nil {
		cookies, err := b.deps.Cookies.GetCookies(ctx, rawURL)
		if err != nil {
			logging.D("No cookies for %q: %v", rawURL, err)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.E("Failed to close response body for %q: %v", rawURL, closeErr)
		}
		return nil, &net.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

// FetchFile streams one media item to disk under the request's directory.
// The transfer consults the bandwidth throttle and checks cancellation at
// every chunk boundary; a stalled read longer than the configured read
// timeout aborts the transfer. Partial output is removed on any failure.
func (b *Base) FetchFile(ctx context.Context, req contracts.DownloadRequest, item models.MediaItem) (written int64, path string, err error) {
	read := b.deps.Settings.ReadTimeout
	if read <= 0 {
		read = consts.ReadTimeout
	}

	// A per-request cancel cause lets a stalled read surface as a timeout
	// rather than a user cancellation.
	reqCtx, cancelCause := context.WithCancelCause(ctx)
	defer cancelCause(nil)

	resp, err := b.Get(reqCtx, item.URL)
	if err != nil {
		return 0, "", err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.E("Failed to close body for %q: %v", item.URL, closeErr)
		}
	}()

	if err := os.MkdirAll(req.Dir, consts.PermsGenericDir); err != nil {
		return 0, "", fmt.Errorf("failed to create download directory %q: %w", req.Dir, err)
	}

	name := SanitizeFilename(item.Filename, filepath.Base(resp.Request.URL.Path))
	finalPath := uniquePath(req.Dir, name)
	partPath := finalPath + consts.PartTag

	out, err := os.Create(partPath)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create %q: %w", partPath, err)
	}

	cleanup := func() {
		if closeErr := out.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			logging.E("Failed to close partial file %q: %v", partPath, closeErr)
		}
		if rmErr := os.Remove(partPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.E("Failed to remove partial file %q: %v", partPath, rmErr)
		}
	}

	watchdog := time.AfterFunc(read, func() {
		cancelCause(context.DeadlineExceeded)
	})
	defer watchdog.Stop()

	total := resp.ContentLength
	buf := make([]byte, fetchChunkSize)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.Reset(read)

			if waitErr := b.throttle.Wait(ctx, n); waitErr != nil {
				cleanup()
				return 0, "", waitErr
			}

			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				cleanup()
				return 0, "", fmt.Errorf("failed writing %q: %w", partPath, writeErr)
			}
			written += int64(n)

			b.EmitProgress(models.Progress{
				JobID:      req.JobID,
				URL:        item.URL,
				Filename:   name,
				Percent:    percentOf(written, total),
				BytesDone:  written,
				TotalBytes: total,
			})
		}

		if cancelErr := b.CheckCancelled(ctx); cancelErr != nil {
			cleanup()
			return 0, "", cancelErr
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			cleanup()
			if cause := context.Cause(reqCtx); cause != nil && !errors.Is(cause, context.Canceled) {
				return 0, "", fmt.Errorf("read stalled fetching %q: %w", item.URL, cause)
			}
			return 0, "", fmt.Errorf("failed reading body of %q: %w", item.URL, readErr)
		}
	}

	if err := out.Close(); err != nil {
		cleanup()
		return 0, "", fmt.Errorf("failed to close %q: %w", partPath, err)
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		cleanup()
		return 0, "", fmt.Errorf("failed to finalize %q: %w", finalPath, err)
	}

	b.EmitProgress(models.Progress{
		JobID:      req.JobID,
		URL:        item.URL,
		Filename:   name,
		Percent:    100,
		BytesDone:  written,
		TotalBytes: written,
	})

	return written, finalPath, nil
}

// uniquePath resolves name collisions in dir with a numeric suffix.
func uniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

func originOf(u *url.URL) string {
	if u == nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

func percentOf(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
