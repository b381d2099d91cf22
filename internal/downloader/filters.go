package downloader

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kennygrant/sanitize"

	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// FilterItem checks one media item against the configured size, date, and
// extension filters. Returns a human-readable skip reason, or "" to keep it.
// Bounds are only applied when the item carries the relevant information.
func (b *Base) FilterItem(item models.MediaItem) string {
	s := b.deps.Settings

	if ext := strings.ToLower(filepath.Ext(item.Filename)); ext != "" {
		for _, excluded := range s.ExcludeExts {
			if ext == normalizeExt(excluded) {
				return fmt.Sprintf("extension %s excluded", ext)
			}
		}
	}

	if item.Size > 0 {
		if s.MinFileSize > 0 && item.Size < s.MinFileSize {
			return fmt.Sprintf("size %d below minimum %d", item.Size, s.MinFileSize)
		}
		if s.MaxFileSize > 0 && item.Size > s.MaxFileSize {
			return fmt.Sprintf("size %d above maximum %d", item.Size, s.MaxFileSize)
		}
	}

	return ""
}

// FilterDate checks a post's publish date against the configured range.
// Returns a skip reason, or "" to keep it. Zero dates pass.
func (b *Base) FilterDate(published time.Time) string {
	if published.IsZero() {
		return ""
	}

	s := b.deps.Settings
	if !s.FilterAfter.IsZero() && published.Before(s.FilterAfter) {
		return fmt.Sprintf("published %s before cutoff %s",
			published.Format(time.DateOnly), s.FilterAfter.Format(time.DateOnly))
	}
	if !s.FilterBefore.IsZero() && published.After(s.FilterBefore) {
		return fmt.Sprintf("published %s after cutoff %s",
			published.Format(time.DateOnly), s.FilterBefore.Format(time.DateOnly))
	}
	return ""
}

// SanitizeFilename makes a name safe for the local filesystem, preserving
// the extension. Empty or fully-stripped names fall back to the default.
func SanitizeFilename(name, fallback string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(filepath.Base(name), ext)
	if ext == "." {
		ext = ""
	}

	clean := sanitize.Name(stem)
	clean = strings.Trim(clean, "._-")
	if clean == "" {
		clean = fallback
	}

	const maxStem = 180
	if len(clean) > maxStem {
		clean = clean[:maxStem]
	}

	return clean + strings.ToLower(ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
