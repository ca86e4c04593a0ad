package releaseservice

import (
	"testing"

	"appdist/internal/models"
	"appdist/internal/parser"

	"github.com/stretchr/testify/assert"
)

func TestSelectIconPathIOS(t *testing.T) {
	meta := &parser.PackageMetadata{
		DeviceType: models.DeviceTypeIOS,
		Icons: []parser.IconCandidate{
			{File: "AppIcon29x29.png", Uncrushed: "AppIcon29x29.uncrushed.png"},
			{File: "AppIcon60x60@3x.png", Uncrushed: "AppIcon60x60@3x.uncrushed.png"},
		},
	}

	path, ok := SelectIconPath(meta)
	assert.True(t, ok)
	assert.Equal(t, "AppIcon60x60@3x.uncrushed.png", path)

	// No uncrushed variant on the last candidate means no icon.
	meta.Icons[1].Uncrushed = ""
	_, ok = SelectIconPath(meta)
	assert.False(t, ok)
}

func TestSelectIconPathMacOS(t *testing.T) {
	meta := &parser.PackageMetadata{
		DeviceType: models.DeviceTypeMacOS,
		IconSets:   []string{"icon_16x16.png", "icon_512x512.png"},
	}

	path, ok := SelectIconPath(meta)
	assert.True(t, ok)
	assert.Equal(t, "icon_512x512.png", path)

	_, ok = SelectIconPath(&parser.PackageMetadata{DeviceType: models.DeviceTypeMacOS})
	assert.False(t, ok)
}

func TestSelectIconPathAndroid(t *testing.T) {
	meta := &parser.PackageMetadata{
		DeviceType: models.DeviceTypeAndroid,
		Icons: []parser.IconCandidate{
			{File: "a.xml"},
			{File: "b.png"},
		},
	}

	path, ok := SelectIconPath(meta)
	assert.True(t, ok)
	assert.Equal(t, "b.png", path)

	// Only an adaptive-icon descriptor: no raster payload, no icon.
	onlyXML := &parser.PackageMetadata{
		DeviceType: models.DeviceTypeAndroid,
		Icons:      []parser.IconCandidate{{File: "a.xml"}},
	}
	_, ok = SelectIconPath(onlyXML)
	assert.False(t, ok)
}
