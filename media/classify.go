package media

import (
	"path/filepath"
	"strings"

	"storyreel/types"
)

var (
	imageExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true}
	videoExtensions = map[string]bool{"mp4": true, "avi": true}
)

// Classify decides the asset kind from the file extension only. Content is not sniffed.
func Classify(path string) types.AssetKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case path == "":
		return types.AssetUnknown
	case imageExtensions[ext]:
		return types.AssetImage
	case videoExtensions[ext]:
		return types.AssetVideo
	default:
		return types.AssetUnknown
	}
}
