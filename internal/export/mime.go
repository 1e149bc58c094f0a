package export

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MimeTable maps content types to file extensions using the mimetype tree,
// then the platform MIME table.
type MimeTable struct{}

// Extension returns the extension without a leading dot, or "" when unknown.
func (MimeTable) Extension(contentType string) string {
	mediaType := baseMediaType(contentType)
	if mediaType == "" {
		return ""
	}
	if m := mimetype.Lookup(mediaType); m != nil {
		if ext := strings.TrimPrefix(m.Extension(), "."); ext != "" {
			return ext
		}
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(preferredExtension(exts), ".")
}

func baseMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mediaType)
	}
	head, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(head))
}

// the platform table is unordered; prefer the shortest, then alphabetical
func preferredExtension(exts []string) string {
	best := exts[0]
	for _, ext := range exts[1:] {
		if len(ext) < len(best) || (len(ext) == len(best) && ext < best) {
			best = ext
		}
	}
	return best
}
