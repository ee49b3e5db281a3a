package media

import (
	"path/filepath"
	"strings"
)

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".mkv": {},
	".avi": {},
}

// IsVideoFile reports whether the path carries a recognized video extension.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := videoExtensions[ext]
	return ok
}
