package cfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/keys"
)

// validateSettings checks the bound configuration before any work begins and
// prepares the directories the run needs.
func validateSettings() error {
	if lvl := viper.GetInt(keys.DebugLevel); lvl < 0 || lvl > 5 {
		return fmt.Errorf("debug level %d out of range (0 - 5)", lvl)
	}

	for _, key := range []string{keys.MaxConcurrent, keys.DomainConcurrency, keys.RetryMaxAttempts} {
		if v := viper.GetInt(key); v < 1 {
			return fmt.Errorf("--%s must be at least 1, got %d", key, v)
		}
	}

	for _, key := range []string{
		keys.DomainInterval, keys.RetryBaseDelay, keys.RetryDelayCap,
		keys.ConnectTimeout, keys.ReadTimeout,
	} {
		if d := viper.GetDuration(key); d < 0 {
			return fmt.Errorf("--%s cannot be negative, got %s", key, d)
		}
	}

	for _, key := range []string{keys.BandwidthLimit, keys.MinFileSize, keys.MaxFileSize} {
		if v := viper.GetInt64(key); v < 0 {
			return fmt.Errorf("--%s cannot be negative, got %d", key, v)
		}
	}

	if min, max := viper.GetInt64(keys.MinFileSize), viper.GetInt64(keys.MaxFileSize); max > 0 && min > max {
		return fmt.Errorf("--%s (%d) exceeds --%s (%d)", keys.MinFileSize, min, keys.MaxFileSize, max)
	}

	if days := viper.GetInt(keys.PurgeOlderThan); days < 0 {
		return fmt.Errorf("--%s cannot be negative, got %d", keys.PurgeOlderThan, days)
	}

	if viper.GetBool(keys.Serve) && viper.GetString(keys.ListenAddr) == "" {
		return fmt.Errorf("--%s requires a non-empty --%s", keys.Serve, keys.ListenAddr)
	}

	dir := viper.GetString(keys.DownloadDir)
	if dir == "" {
		return fmt.Errorf("--%s cannot be empty", keys.DownloadDir)
	}
	if err := os.MkdirAll(dir, consts.PermsGenericDir); err != nil {
		return fmt.Errorf("failed to create download directory %q: %w", dir, err)
	}

	dbPath := viper.GetString(keys.DBPath)
	if dbPath == "" {
		return fmt.Errorf("--%s cannot be empty", keys.DBPath)
	}
	if parent := filepath.Dir(dbPath); parent != "." {
		if err := os.MkdirAll(parent, consts.PermsGenericDir); err != nil {
			return fmt.Errorf("failed to create database directory %q: %w", parent, err)
		}
	}
	return nil
}
