package constants

import "strings"

// FileFormat is the coarse document format used to pick an extraction path.
type FileFormat string

const (
	FormatPDF   FileFormat = "PDF"
	FormatImage FileFormat = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension to its FileFormat.
func MapExtToFormat(ext string) (FileFormat, bool) {
	switch NormalizeExt(ext) {
	case "pdf":
		return FormatPDF, true
	case "jpg", "jpeg", "png", "heic", "heif":
		return FormatImage, true
	}
	return "", false
}

// IsHEICExt reports whether the extension names an HEIC/HEIF container.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}
