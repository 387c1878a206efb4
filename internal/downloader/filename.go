package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Characters kept next to letters and digits when building file names.
const (
	mediaNameRunes     = " -_."
	thumbnailNameRunes = " _"
)

// Sanitize keeps unicode letters, digits and the runes in extra, then trims
// trailing whitespace. An empty result becomes fallback.
func Sanitize(title, extra, fallback string) string {
	var b strings.Builder

	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(extra, r) {
			b.WriteRune(r)
		}
	}

	name := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	if strings.Trim(name, ". ") == "" {
		return fallback
	}

	return name
}

// UniqueName returns name, or "name (n)" with the smallest n from 1 such that
// no <dir>/<candidate>.<ext> exists for any of exts.
func UniqueName(dir, name string, exts ...string) string {
	candidate := name

	for n := 1; taken(dir, candidate, exts); n++ {
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}

	return candidate
}

func taken(dir, name string, exts []string) bool {
	for _, ext := range exts {
		if _, err := os.Stat(filepath.Join(dir, name+"."+ext)); err == nil {
			return true
		}
	}

	return false
}
