package models

import "time"

// DownloadSettings holds per-job download options resolved from configuration.
type DownloadSettings struct {
	DownloadDir    string        `json:"download_dir"`
	BandwidthLimit int64         `json:"bandwidth_limit"` // bytes/sec, 0 = unlimited
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	MinFileSize    int64         `json:"min_file_size"` // bytes, 0 = no minimum
	MaxFileSize    int64         `json:"max_file_size"` // bytes, 0 = no maximum
	FilterAfter    time.Time     `json:"filter_after"`  // zero = no lower bound
	FilterBefore   time.Time     `json:"filter_before"` // zero = no upper bound
	ExcludeExts    []string      `json:"exclude_exts"`
	CookieSource   string        `json:"cookie_source"` // browser name, "" = none
	GalleryDLPath  string        `json:"gallery_dl_path"`
	YtDLPPath      string        `json:"yt_dlp_path"`
	MaxAttempts    int           `json:"max_attempts"`
	Priority       int           `json:"priority"`
}
