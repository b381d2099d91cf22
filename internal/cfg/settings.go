package cfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/viper"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/keys"
	"github.com/primoscope/CoomerDL-sub000/internal/file"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/queue"
	"github.com/primoscope/CoomerDL-sub000/internal/retry"
)

// DownloadSettings resolves the per-job download options from the bound
// configuration.
func DownloadSettings() (models.DownloadSettings, error) {
	s := models.DownloadSettings{
		DownloadDir:    viper.GetString(keys.DownloadDir),
		BandwidthLimit: viper.GetInt64(keys.BandwidthLimit),
		ConnectTimeout: viper.GetDuration(keys.ConnectTimeout),
		ReadTimeout:    viper.GetDuration(keys.ReadTimeout),
		MinFileSize:    viper.GetInt64(keys.MinFileSize),
		MaxFileSize:    viper.GetInt64(keys.MaxFileSize),
		ExcludeExts:    normalizeExts(viper.GetStringSlice(keys.ExcludeExts)),
		CookieSource:   viper.GetString(keys.CookieSource),
		GalleryDLPath:  viper.GetString(keys.GalleryDLPath),
		YtDLPPath:      viper.GetString(keys.YtDLPPath),
		MaxAttempts:    viper.GetInt(keys.RetryMaxAttempts),
		Priority:       viper.GetInt(keys.JobPriority),
	}

	var err error
	if s.FilterAfter, err = parseDateFlag(keys.FilterDateAfter); err != nil {
		return models.DownloadSettings{}, err
	}
	if s.FilterBefore, err = parseDateFlag(keys.FilterDateTo); err != nil {
		return models.DownloadSettings{}, err
	}
	return s, nil
}

// QueueOptions resolves the job queue manager options from the bound
// configuration.
func QueueOptions() queue.Options {
	return queue.Options{
		MaxConcurrent:     viper.GetInt(keys.MaxConcurrent),
		DomainConcurrency: viper.GetInt(keys.DomainConcurrency),
		DomainInterval:    viper.GetDuration(keys.DomainInterval),
		DownloadDir:       viper.GetString(keys.DownloadDir),
		Retry: retry.Policy{
			MaxAttempts: viper.GetInt(keys.RetryMaxAttempts),
			BaseDelay:   viper.GetDuration(keys.RetryBaseDelay),
			DelayCap:    viper.GetDuration(keys.RetryDelayCap),
			Jitter:      retry.DefaultPolicy().Jitter,
		},
	}
}

// URLs collects the URLs to queue from flags and the optional URL file,
// preserving order and dropping duplicates.
func URLs() ([]string, error) {
	urls := viper.GetStringSlice(keys.URLs)

	if path := viper.GetString(keys.URLFile); path != "" {
		fromFile, err := file.ReadURLFile(path)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out, nil
}

// parseDateFlag parses a lenient user-entered date, empty meaning unset.
func parseDateFlag(key string) (time.Time, error) {
	raw := viper.GetString(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q for --%s: %w", raw, key, err)
	}
	return t, nil
}

// normalizeExts lowercases extensions and ensures each carries a leading dot.
func normalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
