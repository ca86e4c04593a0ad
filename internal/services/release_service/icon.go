package releaseservice

import (
	"path/filepath"
	"strings"

	"appdist/internal/models"
	"appdist/internal/parser"
)

// SelectIconPath picks the single best icon resource for a package, by
// platform. Extractors order candidates lowest to highest resolution, so
// "last" is the richest one. Having no icon is a normal outcome, not an
// error.
func SelectIconPath(meta *parser.PackageMetadata) (string, bool) {
	switch meta.DeviceType {
	case models.DeviceTypeIOS:
		// Only the uncrushed (decoded) variant is usable outside Xcode.
		if n := len(meta.Icons); n > 0 && meta.Icons[n-1].Uncrushed != "" {
			return meta.Icons[n-1].Uncrushed, true
		}
	case models.DeviceTypeMacOS:
		if n := len(meta.IconSets); n > 0 {
			return meta.IconSets[n-1], true
		}
	case models.DeviceTypeAndroid:
		// Adaptive-icon XML descriptors have no raster payload.
		for i := len(meta.Icons) - 1; i >= 0; i-- {
			file := meta.Icons[i].File
			if file == "" || strings.EqualFold(filepath.Ext(file), ".xml") {
				continue
			}
			return file, true
		}
	}
	return "", false
}
