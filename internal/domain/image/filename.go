package image

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename makes an uploaded name safe to use as an archive entry:
// compatibility decomposition, non-ASCII dropped, path separators and
// whitespace collapsed to "_", anything outside [A-Za-z0-9._-] removed and
// leading/trailing dots and underscores trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	asciiFold := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}

	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")
	folded = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, folded)

	return strings.Trim(folded, "._")
}

// splitName returns the base name and the lower-case extension of a
// sanitised file name.
func splitName(name string) (base, ext string) {
	dotExt := filepath.Ext(name)
	base = strings.TrimSuffix(name, dotExt)
	ext = strings.ToLower(strings.TrimPrefix(dotExt, "."))
	return base, ext
}
