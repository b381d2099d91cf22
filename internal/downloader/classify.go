package downloader

import (
	"path/filepath"
	"strings"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

var extTypes = map[string]consts.FileType{}

func init() {
	for _, ext := range consts.AllImageExtensions {
		extTypes[ext] = consts.FileTypeImage
	}
	for _, ext := range consts.AllVidExtensions {
		extTypes[ext] = consts.FileTypeVideo
	}
	for _, ext := range consts.AllDocExtensions {
		extTypes[ext] = consts.FileTypeDocument
	}
	for _, ext := range consts.AllArchiveExtensions {
		extTypes[ext] = consts.FileTypeArchive
	}
}

// ClassifyExt maps a filename's extension to its file type class.
func ClassifyExt(filename string) consts.FileType {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extTypes[ext]; ok {
		return t
	}
	return consts.FileTypeOther
}
