package parser

import (
	"fmt"

	"appdist/internal/models"
)

type EnumReleaseType string

const (
	ReleaseTypeDebug   EnumReleaseType = "debug"
	ReleaseTypeAdHoc   EnumReleaseType = "adhoc"
	ReleaseTypeInHouse EnumReleaseType = "inhouse"
	ReleaseTypeRelease EnumReleaseType = "release"
)

// IconCandidate is one icon resource embedded in a package. Candidates
// are ordered lowest to highest resolution by the extractor. Uncrushed
// points at the decoded variant of an Apple-optimized PNG when one exists.
type IconCandidate struct {
	File      string `json:"file"`
	Uncrushed string `json:"uncrushed,omitempty"`
}

// PackageMetadata is the extractor's output for one uploaded package.
// It lives for a single ingestion request and is never persisted.
// A successful extraction always carries BundleID and DeviceType.
type PackageMetadata struct {
	Name           string                `json:"name"`
	BundleID       string                `json:"bundle_id"`
	ReleaseVersion string                `json:"release_version"`
	BuildVersion   string                `json:"build_version"`
	DeviceType     models.EnumDeviceType `json:"device_type"`
	ReleaseType    EnumReleaseType       `json:"release_type,omitempty"` // iOS only
	Icons          []IconCandidate       `json:"icons,omitempty"`
	IconSets       []string              `json:"icon_sets,omitempty"` // macOS .icns set files
	Devices        []string              `json:"devices,omitempty"`   // UDIDs, adhoc only
}

type ParseErrorKind int

const (
	// KindUnsupportedFileType: the upload is not a package format the
	// parser understands at all.
	KindUnsupportedFileType ParseErrorKind = iota
	// KindMalformedPackage: the format was recognized but the package
	// contents could not be read.
	KindMalformedPackage
	// KindUnknown: the parser failed in an unexpected way. Detail is
	// logged server-side and not necessarily shown to the uploader.
	KindUnknown
)

// ParseError is the closed failure set of the extractor adapter. Nothing
// else ever escapes Extract.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindUnsupportedFileType:
		return "unsupported file type"
	case KindMalformedPackage:
		return "malformed package"
	default:
		if e.Detail != "" {
			return fmt.Sprintf("package parsing failed: %s", e.Detail)
		}
		return "package parsing failed"
	}
}

// Convenience constructors used by parser implementations.
func ErrUnsupportedFileType() *ParseError {
	return &ParseError{Kind: KindUnsupportedFileType}
}

func ErrMalformedPackage(detail string) *ParseError {
	return &ParseError{Kind: KindMalformedPackage, Detail: detail}
}
