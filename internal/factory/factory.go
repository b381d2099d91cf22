// Package factory routes URLs to downloader variants. Variants are probed
// in registration order: native site scrapers first, then the gallery and
// video engines, then the generic page scraper as the catch-all.
package factory

import (
	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/bunkr"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/erome"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/gallerydl"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/generichtml"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/partysite"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader/ytdlp"
)

// Constructor builds one variant instance with the shared collaborators.
type Constructor func(downloader.Deps) contracts.Downloader

// Factory hands out a fresh downloader instance per job so cancellation and
// progress state never cross jobs. URL support is checked against a probe
// instance per variant.
type Factory struct {
	deps downloader.Deps
	regs []registration
}

type registration struct {
	probe     contracts.Downloader
	construct Constructor
}

// New builds the standard registry.
func New(deps downloader.Deps) *Factory {
	return newWith(deps,
		func(d downloader.Deps) contracts.Downloader { return partysite.New(d) },
		func(d downloader.Deps) contracts.Downloader { return erome.New(d) },
		func(d downloader.Deps) contracts.Downloader { return bunkr.New(d) },
		func(d downloader.Deps) contracts.Downloader { return gallerydl.New(d) },
		func(d downloader.Deps) contracts.Downloader { return ytdlp.New(d) },
		func(d downloader.Deps) contracts.Downloader { return generichtml.New(d) },
	)
}

func newWith(deps downloader.Deps, constructors ...Constructor) *Factory {
	f := &Factory{deps: deps, regs: make([]registration, 0, len(constructors))}
	for _, construct := range constructors {
		f.regs = append(f.regs, registration{
			probe:     construct(deps),
			construct: construct,
		})
	}
	return f
}

// GetDownloader returns a fresh downloader for the URL. The second return
// is false when no registered variant supports it.
func (f *Factory) GetDownloader(rawURL string) (contracts.Downloader, bool) {
	for _, reg := range f.regs {
		if reg.probe.SupportsURL(rawURL) {
			return reg.construct(f.deps), true
		}
	}
	return nil, false
}
