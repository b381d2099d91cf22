package cfg

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/keys"
)

// initProgramFlags initializes top-level program behavior flags.
func initProgramFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().StringSlice(keys.URLs, nil, "URLs to queue for download")
	if err := viper.BindPFlag(keys.URLs, rootCmd.PersistentFlags().Lookup(keys.URLs)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.URLFile, "", "Path to a file of URLs to queue (one per line, '#' comments)")
	if err := viper.BindPFlag(keys.URLFile, rootCmd.PersistentFlags().Lookup(keys.URLFile)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().StringP(keys.DownloadDir, "o", "downloads", "Directory to download files into")
	if err := viper.BindPFlag(keys.DownloadDir, rootCmd.PersistentFlags().Lookup(keys.DownloadDir)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.DBPath, "coomerdl.db", "Path to the job history database file")
	if err := viper.BindPFlag(keys.DBPath, rootCmd.PersistentFlags().Lookup(keys.DBPath)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.ConfigFile, "", "Path to a config file (any Viper-supported format)")
	if err := viper.BindPFlag(keys.ConfigFile, rootCmd.PersistentFlags().Lookup(keys.ConfigFile)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.DebugLevel, 0, "Debug level (0 - 5)")
	if err := viper.BindPFlag(keys.DebugLevel, rootCmd.PersistentFlags().Lookup(keys.DebugLevel)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.LogFile, "", "Write a JSON log file at this path")
	if err := viper.BindPFlag(keys.LogFile, rootCmd.PersistentFlags().Lookup(keys.LogFile)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Bool(keys.Serve, false, "Run the HTTP control API and keep running until interrupted")
	if err := viper.BindPFlag(keys.Serve, rootCmd.PersistentFlags().Lookup(keys.Serve)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.ListenAddr, consts.DefaultListenAddr, "Listen address for the HTTP control API")
	if err := viper.BindPFlag(keys.ListenAddr, rootCmd.PersistentFlags().Lookup(keys.ListenAddr)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.PurgeOlderThan, 0, "Purge finished jobs older than this many days at startup (0 keeps everything)")
	return viper.BindPFlag(keys.PurgeOlderThan, rootCmd.PersistentFlags().Lookup(keys.PurgeOlderThan))
}

// initQueueFlags initializes scheduling and retry flags.
func initQueueFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().IntP(keys.MaxConcurrent, "c", consts.DefaultMaxConcurrent, "Maximum downloads running at once")
	if err := viper.BindPFlag(keys.MaxConcurrent, rootCmd.PersistentFlags().Lookup(keys.MaxConcurrent)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.DomainConcurrency, consts.DefaultDomainConcurrency, "Maximum in-flight requests per domain")
	if err := viper.BindPFlag(keys.DomainConcurrency, rootCmd.PersistentFlags().Lookup(keys.DomainConcurrency)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.DomainInterval, consts.DefaultDomainInterval, "Minimum spacing between requests to one domain")
	if err := viper.BindPFlag(keys.DomainInterval, rootCmd.PersistentFlags().Lookup(keys.DomainInterval)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.JobPriority, 0, "Priority for queued jobs (higher runs first)")
	if err := viper.BindPFlag(keys.JobPriority, rootCmd.PersistentFlags().Lookup(keys.JobPriority)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.RetryMaxAttempts, consts.DefaultMaxRetries, "Attempts per job before it fails for good")
	if err := viper.BindPFlag(keys.RetryMaxAttempts, rootCmd.PersistentFlags().Lookup(keys.RetryMaxAttempts)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.RetryBaseDelay, consts.DefaultRetryBaseDelay, "Backoff delay after the first failed attempt")
	if err := viper.BindPFlag(keys.RetryBaseDelay, rootCmd.PersistentFlags().Lookup(keys.RetryBaseDelay)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.RetryDelayCap, consts.DefaultRetryDelayCap, "Upper bound on the backoff delay")
	return viper.BindPFlag(keys.RetryDelayCap, rootCmd.PersistentFlags().Lookup(keys.RetryDelayCap))
}

// initNetworkFlags initializes connection behavior flags.
func initNetworkFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().Int64(keys.BandwidthLimit, 0, "Per-download bandwidth limit in bytes/sec (0 = unlimited)")
	if err := viper.BindPFlag(keys.BandwidthLimit, rootCmd.PersistentFlags().Lookup(keys.BandwidthLimit)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.ConnectTimeout, consts.ConnectTimeout, "Connection timeout for network requests")
	if err := viper.BindPFlag(keys.ConnectTimeout, rootCmd.PersistentFlags().Lookup(keys.ConnectTimeout)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.ReadTimeout, consts.ReadTimeout, "Read-stall timeout for network requests")
	if err := viper.BindPFlag(keys.ReadTimeout, rootCmd.PersistentFlags().Lookup(keys.ReadTimeout)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.CookieSource, "", "Browser to load cookies from for authenticated hosts (e.g. firefox)")
	return viper.BindPFlag(keys.CookieSource, rootCmd.PersistentFlags().Lookup(keys.CookieSource))
}

// initFilterFlags initializes content filtering flags.
func initFilterFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().Int64(keys.MinFileSize, 0, "Skip files smaller than this many bytes (0 = no minimum)")
	if err := viper.BindPFlag(keys.MinFileSize, rootCmd.PersistentFlags().Lookup(keys.MinFileSize)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int64(keys.MaxFileSize, 0, "Skip files larger than this many bytes (0 = no maximum)")
	if err := viper.BindPFlag(keys.MaxFileSize, rootCmd.PersistentFlags().Lookup(keys.MaxFileSize)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.FilterDateAfter, "", "Only grab content published on or after this date")
	if err := viper.BindPFlag(keys.FilterDateAfter, rootCmd.PersistentFlags().Lookup(keys.FilterDateAfter)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.FilterDateTo, "", "Only grab content published up to this date")
	if err := viper.BindPFlag(keys.FilterDateTo, rootCmd.PersistentFlags().Lookup(keys.FilterDateTo)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().StringSlice(keys.ExcludeExts, nil, "File extensions to skip (e.g. .gif,.zip)")
	return viper.BindPFlag(keys.ExcludeExts, rootCmd.PersistentFlags().Lookup(keys.ExcludeExts))
}

// initEngineFlags initializes external engine flags.
func initEngineFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().String(keys.GalleryDLPath, "gallery-dl", "Path to the gallery-dl binary")
	if err := viper.BindPFlag(keys.GalleryDLPath, rootCmd.PersistentFlags().Lookup(keys.GalleryDLPath)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.YtDLPPath, "yt-dlp", "Path to the yt-dlp binary")
	return viper.BindPFlag(keys.YtDLPPath, rootCmd.PersistentFlags().Lookup(keys.YtDLPPath))
}

// initObserverFlags initializes external observer flags.
func initObserverFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().StringSlice(keys.WebhookURLs, nil, "URLs to POST terminal job events to")
	return viper.BindPFlag(keys.WebhookURLs, rootCmd.PersistentFlags().Lookup(keys.WebhookURLs))
}
