package utils

import (
	"mime"
	"path"
	"strings"
)

var extensionTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
}

// NormalizeFileType returns a usable MIME type for a media file, preferring
// the recorded type and falling back to extension-based inference.
func NormalizeFileType(fileURL, currentType string) string {
	if currentType != "" && strings.Contains(currentType, "/") {
		return strings.ToLower(currentType)
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileURL)), ".")
	if guess := mime.TypeByExtension("." + ext); guess != "" {
		// TypeByExtension can attach parameters (e.g. "; charset=")
		if i := strings.Index(guess, ";"); i > 0 {
			guess = guess[:i]
		}
		return strings.ToLower(strings.TrimSpace(guess))
	}

	return extensionTypes[ext]
}

// IsImageType and IsVideoType classify a MIME type by its top-level family.
func IsImageType(fileType string) bool {
	return strings.Contains(strings.ToLower(fileType), "image")
}

func IsVideoType(fileType string) bool {
	return strings.Contains(strings.ToLower(fileType), "video")
}
