package downloader

import (
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// EmitProgress forwards a progress update to the configured observer, capped
// to roughly ten updates per second so a fast transfer cannot flood
// subscribers. Completion updates (>= 100%) always pass through.
func (b *Base) EmitProgress(p models.Progress) {
	if b.deps.OnProgress == nil {
		return
	}

	b.progressMu.Lock()
	now := time.Now()
	if p.Percent < 100 && now.Sub(b.lastEmit) < consts.ProgressMinInterval {
		b.progressMu.Unlock()
		return
	}
	b.lastEmit = now
	b.progressMu.Unlock()

	b.deps.OnProgress(p)
}
