package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// BookExtensions are the file types the catalog stores.
var BookExtensions = []string{".pdf", ".epub"}

// SanitizeFilename makes a title safe to use as a download file name.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, " ")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.Trim(filename, " .")

	// Leave room for the extension
	if len(filename) > 200 {
		filename = strings.TrimSpace(filename[:200])
	}
	if filename == "" {
		filename = "book"
	}
	return filename
}

// IsBookFile reports whether name has one of BookExtensions.
func IsBookFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range BookExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// TitleFromFilename turns "the_long-loan.pdf" into "The Long Loan".
func TitleFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	if len(words) == 0 {
		return name
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
