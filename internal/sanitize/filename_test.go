package sanitize

import (
	"strings"
	"testing"

	"rbxcache/internal/constants"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal_file", "photo.jpg", "photo.jpg"},
		{"normal_with_spaces", "my file.txt", "my file.txt"},
		{"normal_with_hyphens", "my-file-name.txt", "my-file-name.txt"},
		{"no_extension", "README", "README"},
		{"multiple_dots", "archive.tar.gz", "archive.tar.gz"},

		{"unix_path_traversal", "../../../etc/passwd", "passwd"},
		{"windows_path_traversal", "..\\..\\..\\windows\\system32", "system32"},
		{"mixed_separators", "..\\../..\\../etc/passwd", "passwd"},
		{"absolute_unix_path", "/etc/passwd", "passwd"},

		{"null_byte_in_name", "file\x00evil.txt", "fileevil.txt"},
		{"only_null_bytes", "\x00\x00\x00", ""},

		{"control_chars", "file\x01\x02\x03.txt", "file___.txt"},
		{"tab_in_name", "file\tname.txt", "file_name.txt"},
		{"newline_in_name", "file\nname.txt", "file_name.txt"},

		{"angle_brackets", "file<name>.txt", "file_name_.txt"},
		{"colon", "file:name.txt", "file_name.txt"},
		{"pipe", "file|name.txt", "file_name.txt"},

		{"hidden_file", ".hidden", "hidden"},
		{"dots_only", "...", ""},
		{"single_dot", ".", ""},

		{"empty_string", "", ""},

		{"max_length", strings.Repeat("a", constants.MaxOriginNameLength), strings.Repeat("a", constants.MaxOriginNameLength)},
		{"over_max_length", strings.Repeat("a", constants.MaxOriginNameLength+100), strings.Repeat("a", constants.MaxOriginNameLength)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Filename(tc.input)
			if result != tc.expected {
				t.Errorf("Filename(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestOriginName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal_name", "photo", "photo"},
		{"path_traversal", "../../../etc/photo", "photo"},
		{"leading_underscores", "___photo", "photo"},
		{"trailing_underscores", "photo___", "photo"},
		{"both_sides", "___photo___", "photo"},
		{"empty", "", ""},
		{"only_underscores", "___", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := OriginName(tc.input)
			if result != tc.expected {
				t.Errorf("OriginName(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestFamilyFolder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal", "Roboto", "Roboto"},
		{"with_spaces", "Source Sans Pro", "Source Sans Pro"},
		{"traversal_attempt", "../../../etc", "etc"},
		{"empties_out", "...", "UnknownFamily"},
		{"empty_string", "", "UnknownFamily"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := FamilyFolder(tc.input)
			if result != tc.expected {
				t.Errorf("FamilyFolder(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "jpg", "jpg"},
		{"uppercase", "JPG", "jpg"},
		{"with_dot_prefix", ".jpg", "jpg"},
		{"special_chars", "j p g", "jpg"},
		{"path_in_ext", "../../../etc", "etc"},
		{"null_in_ext", "jp\x00g", "jpg"},
		{"max_length", strings.Repeat("a", constants.MaxExtensionLength), strings.Repeat("a", constants.MaxExtensionLength)},
		{"over_max_length", strings.Repeat("a", constants.MaxExtensionLength+10), strings.Repeat("a", constants.MaxExtensionLength)},
		{"empty", "", ""},
		{"only_special", "...", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Extension(tc.input)
			if result != tc.expected {
				t.Errorf("Extension(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestIsPathTraversal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"unix_traversal", "../something", true},
		{"windows_traversal", "..\\something", true},
		{"forward_slash", "path/file", true},
		{"null_byte", "file\x00.txt", true},
		{"encoded_slash", "..%2f..%2f", true},
		{"uppercase_encoded", "..%2F..%2F", true},

		{"normal_file", "photo.jpg", false},
		{"normal_name", "filename", false},
		{"empty", "", false},
		{"underscore", "file_name.txt", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := IsPathTraversal(tc.input)
			if result != tc.expected {
				t.Errorf("IsPathTraversal(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestFilename_SecurityPayloads(t *testing.T) {
	payloads := []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config",
		"....//....//....//etc/passwd",
		"..%2F..%2F..%2Fetc/passwd",
		"file\x00.txt",
		"../\x00../etc/passwd",
	}

	for _, payload := range payloads {
		t.Run("payload", func(t *testing.T) {
			result := Filename(payload)
			if strings.Contains(result, "..") {
				t.Errorf("Filename(%q) = %q, still contains path traversal", payload, result)
			}
			if strings.ContainsAny(result, "/\\") {
				t.Errorf("Filename(%q) = %q, still contains directory separator", payload, result)
			}
			if strings.Contains(result, "\x00") {
				t.Errorf("Filename(%q) = %q, still contains null byte", payload, result)
			}
		})
	}
}
