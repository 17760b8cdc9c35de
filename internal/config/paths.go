package config

import (
	"os"
	"path/filepath"

	"rbxcache/internal/constants"
)

// CachePaths resolves the candidate Roblox cache locations per spec §6:
// the standard client's SQLite DB and storage folder, the UWP package's
// flat HTTP cache, and a temp-directory fallback. DBPath is empty when no
// standard-client DB is found.
type CachePaths struct {
	DBPath             string // rbx-storage.db, if present
	StandardStorageDir string // rbx-storage/, companion to DBPath
	UWPPath            string
	TempFallbackPath   string
}

// DetectCachePaths resolves Roblox's well-known cache locations relative
// to the current environment. On non-Windows platforms the same
// %LOCALAPPDATA%/%TEMP%-shaped layout is still probed under HOME/TMPDIR
// so the engine remains testable off Windows; a real deployment expects
// these to resolve the same way Roblox itself lays out its cache.
func DetectCachePaths() CachePaths {
	localAppData := localAppDataDir()
	tempDir := os.TempDir()

	paths := CachePaths{
		StandardStorageDir: filepath.Join(localAppData, "Roblox", constants.StandardStorageDir),
		UWPPath: filepath.Join(localAppData, "Packages", constants.UWPPackageDir,
			constants.UWPLocalStateHTTPPath),
		TempFallbackPath: filepath.Join(tempDir, constants.TempFallbackSubpath),
	}

	dbPath := filepath.Join(localAppData, "Roblox", constants.StandardDBName)
	if info, err := os.Stat(dbPath); err == nil && !info.IsDir() {
		paths.DBPath = dbPath
	}

	return paths
}

func localAppDataDir() string {
	if v := os.Getenv("LOCALAPPDATA"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "AppData", "Local")
}

// ResolveScanTarget picks the backend the scanner should start with,
// following the precedence in spec §4.3: a standard DB wins over the
// UWP path, which wins over the temp fallback. override, when non-empty,
// always wins.
//
// Returns (dbPath, fsPath, fallbackCandidates).
func ResolveScanTarget(override string) (string, string, []string) {
	if override != "" {
		if info, err := os.Stat(override); err == nil && !info.IsDir() {
			return override, "", nil
		}
		return "", override, nil
	}

	paths := DetectCachePaths()
	candidates := []string{paths.TempFallbackPath, paths.StandardStorageDir, paths.UWPPath}

	if paths.DBPath != "" {
		return paths.DBPath, paths.StandardStorageDir, candidates
	}

	if dirNonEmpty(paths.UWPPath) {
		return "", paths.UWPPath, candidates
	}

	return "", paths.TempFallbackPath, candidates
}

func dirNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
