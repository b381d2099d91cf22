package consts

// Yt-Dlp
const (
	YtDLPBinary             = "yt-dlp"
	YtDLPNoPlaylist         = "--no-playlist"
	YtDLPNewline            = "--newline"
	YtDLPOutput             = "-o"
	YtDLPCookies            = "--cookies"
	YtDLPCookiesFromBrowser = "--cookies-from-browser"
	YtDLPLimitRate          = "--limit-rate"
	YtDLPSocketTimeout      = "--socket-timeout"
	YtDLPRetries            = "--retries"
	YtDLPPrintFinal         = "--print"
	YtDLPFinalPathSpec      = "after_move:filepath"
	YtDLPSimulate           = "--simulate"
)

// Gallery-DL
const (
	GalleryDLBinary             = "gallery-dl"
	GalleryDLDest               = "--dest"
	GalleryDLCookies            = "--cookies"
	GalleryDLCookiesFromBrowser = "--cookies-from-browser"
	GalleryDLLimitRate          = "--limit-rate"
	GalleryDLWriteLog           = "--write-log"
	GalleryDLSimulate           = "--simulate"
)
