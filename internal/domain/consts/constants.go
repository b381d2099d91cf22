// Package consts holds various global, unchanging values.
package consts

// File prefix and suffix
const (
	PartTag = ".part"
	TempTag = "tmp_"
)

// FileType classifies a media file by its extension.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeDocument FileType = "document"
	FileTypeArchive  FileType = "archive"
	FileTypeOther    FileType = "other"
)

// AllImageExtensions is a list of image file extensions.
var AllImageExtensions = [...]string{".avif", ".bmp", ".gif", ".heic", ".ico", ".jfif",
	".jpe", ".jpeg", ".jpg", ".png", ".svg", ".tif",
	".tiff", ".webp"}

// AllVidExtensions is a list of video file extensions.
var AllVidExtensions = [...]string{".3gp", ".avi", ".f4v", ".flv", ".m4v", ".mkv",
	".mov", ".mp4", ".mpeg", ".mpg", ".ogm", ".ogv",
	".ts", ".vob", ".webm", ".wmv"}

// AllDocExtensions is a list of document file extensions.
var AllDocExtensions = [...]string{".doc", ".docx", ".epub", ".md", ".odt", ".pdf",
	".rtf", ".txt", ".xls", ".xlsx"}

// AllArchiveExtensions is a list of archive file extensions.
var AllArchiveExtensions = [...]string{".7z", ".bz2", ".gz", ".rar", ".tar", ".xz",
	".zip"}

// MirrorHostMap groups hosts that are the same logical service under different
// registered domains, so they share a single rate-limit budget. Subdomain
// mirrors (c1.coomer.su, n2.kemono.su) already collapse via their registered
// domain and do not need entries here.
var MirrorHostMap = map[string]string{
	"coomer.party":    "coomer.su",
	"coomer.st":       "coomer.su",
	"kemono.party":    "kemono.su",
	"kemono.cr":       "kemono.su",
	"bunkr.si":        "bunkr.is",
	"bunkr.ru":        "bunkr.is",
	"bunkr.la":        "bunkr.is",
	"bunkrr.su":       "bunkr.is",
	"bunkr-albums.io": "bunkr.is",
}

// GalleryHostMap holds host patterns served well by the gallery engine.
var GalleryHostMap = map[string]bool{
	"imgur.com":      true,
	"flickr.com":     true,
	"pixiv.net":      true,
	"deviantart.com": true,
	"artstation.com": true,
	"donmai.us":      true,
	"gelbooru.com":   true,
	"rule34.xxx":     true,
	"e621.net":       true,
	"redgifs.com":    true,
	"fapello.com":    true,
	"instagram.com":  true,
	"twitter.com":    true,
	"x.com":          true,
	"reddit.com":     true,
	"tumblr.com":     true,
}

// VideoHostMap holds host patterns served well by the video engine.
var VideoHostMap = map[string]bool{
	"youtube.com":     true,
	"youtu.be":        true,
	"vimeo.com":       true,
	"dailymotion.com": true,
	"twitch.tv":       true,
	"streamable.com":  true,
	"pornhub.com":     true,
	"xvideos.com":     true,
	"spankbang.com":   true,
	"tiktok.com":      true,
	"soundcloud.com":  true,
	"bitchute.com":    true,
	"rumble.com":      true,
	"odysee.com":      true,
}
