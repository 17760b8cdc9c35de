// Package sanitize cleans untrusted strings — font family names, face
// names, and cache-derived basenames — before they become path components.
package sanitize

import (
	"path/filepath"
	"strings"
	"unicode"

	"rbxcache/internal/constants"
)

// illegalFilenameChars contains characters that are forbidden in filenames
// across common filesystems (NTFS, FAT32, ext4 compatibility).
const illegalFilenameChars = `<>:"|?*`

// Filename sanitizes a raw filename by removing path components and NUL
// bytes and replacing control characters and filesystem-illegal characters
// with FilenameReplacementChar. Returns an empty string
// if the result is empty after sanitization (caller decides fallback
// behavior).
func Filename(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ReplaceAll(raw, "\x00", "")
	if s == "" {
		return ""
	}

	// Normalize backslashes to forward slashes so filepath.Base handles
	// Windows-style paths correctly on all platforms.
	s = strings.ReplaceAll(s, "\\", "/")

	s = filepath.Base(s)
	if s == "." || s == ".." {
		return ""
	}

	s = strings.TrimLeft(s, ".")
	s = replaceControlChars(s)
	s = replaceIllegalChars(s)

	if len(s) > constants.MaxOriginNameLength {
		s = s[:constants.MaxOriginNameLength]
	}

	return s
}

// OriginName sanitizes the name portion of a filename (without extension).
func OriginName(raw string) string {
	s := Filename(raw)
	s = strings.Trim(s, " "+constants.FilenameReplacementChar)
	return s
}

// FamilyFolder sanitizes a font family name into a directory component.
// Falls back to "UnknownFamily" when sanitization empties the input, so a
// malformed font-list JSON never collapses every family into the output
// root.
func FamilyFolder(raw string) string {
	name := OriginName(raw)
	if name == "" {
		return "UnknownFamily"
	}
	return name
}

// Extension sanitizes a file extension by lowercasing it and keeping only
// alphanumeric characters.
func Extension(raw string) string {
	if raw == "" {
		return ""
	}

	raw = strings.ToLower(raw)
	raw = strings.TrimLeft(raw, ".")

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	result := b.String()
	if len(result) > constants.MaxExtensionLength {
		result = result[:constants.MaxExtensionLength]
	}
	return result
}

// IsPathTraversal checks whether a string contains path traversal
// indicators, including percent-encoded bypass variants. No package in
// this module calls it.
func IsPathTraversal(s string) bool {
	if s == "" {
		return false
	}

	if strings.Contains(s, "\x00") {
		return true
	}
	if strings.ContainsAny(s, "/\\") {
		return true
	}
	if strings.Contains(s, "..") {
		return true
	}

	lower := strings.ToLower(s)
	encodedPatterns := []string{"%2f", "%5c", "%2e", "%00", "%c0%af"}
	for _, pattern := range encodedPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}

func replaceControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteString(constants.FilenameReplacementChar)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func replaceIllegalChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(illegalFilenameChars, r) {
			b.WriteString(constants.FilenameReplacementChar)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
