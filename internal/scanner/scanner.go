// Package scanner enumerates Roblox cache entries from either a
// SQLite-indexed store or a flat file tree, falling back from the
// former to the latter automatically when the database proves
// unhealthy.
package scanner

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"rbxcache/internal/constants"
	"rbxcache/internal/logger"
)

// Entry is one discovered cache item (spec's CacheEntry).
type Entry struct {
	Identity   string
	SourcePath string
	Body       []byte // present only when the DB row embeds content inline
}

// Mode identifies which backend a Scanner is currently using.
type Mode int

const (
	ModeDB Mode = iota
	ModeFS
)

// Callback receives each newly discovered entry during a scan.
type Callback func(Entry)

// Scanner locates and enumerates Roblox cache entries. It dedups by
// identity across its own lifetime (not across process restarts — that
// is History's job).
type Scanner struct {
	log *logger.Logger

	mu         sync.Mutex
	mode       Mode
	dbPath     string
	fsPath     string
	candidates []string // FS fallback candidates, in priority order
	knownItems map[string]struct{}
	warnedOnce bool
}

// New constructs a Scanner already resolved to a backend. dbPath is the
// path to rbx-storage.db (may not exist); fsPath is the companion
// directory used in FS mode. In DB mode, on-disk blobs are looked up in
// the directory that contains dbPath, not in fsPath.
// candidates lists additional FS fallback directories to try, in
// priority order, if dbPath turns out to be unhealthy.
func New(log *logger.Logger, dbPath, fsPath string, candidates []string) *Scanner {
	s := &Scanner{
		log:        log,
		dbPath:     dbPath,
		fsPath:     fsPath,
		candidates: candidates,
		knownItems: make(map[string]struct{}),
	}

	if dbExists(dbPath) {
		s.mode = ModeDB
	} else {
		s.mode = ModeFS
	}
	return s
}

func dbExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Mode reports the scanner's current backend.
func (s *Scanner) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Scan enumerates all not-yet-seen entries and invokes cb for each.
// Catastrophic failures (cannot open the resolved path at all) are
// logged and return nil rather than an error, matching the scanner's
// per-run best-effort contract; callers that need a hard failure signal
// should check Mode() and the scanner's own log output.
func (s *Scanner) Scan(ctx context.Context, cb Callback) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	if mode == ModeDB {
		if err := s.precheckDatabaseHealth(); err != nil {
			s.fallbackToFS(err)
			return s.scanFS(ctx, cb)
		}
		if err := s.scanDB(ctx, cb); err != nil {
			s.fallbackToFS(err)
			return s.scanFS(ctx, cb)
		}
		return nil
	}

	return s.scanFS(ctx, cb)
}

// precheckDatabaseHealth opens the DB with a short timeout and verifies
// the files table is queryable.
func (s *Scanner) precheckDatabaseHealth() error {
	db, err := sql.Open("sqlite3", s.dbPath+"?mode=ro&_query_only=true")
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DBPreHealthTimeout)
	defer cancel()

	var name string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='files'`).Scan(&name)
	if err != nil {
		return fmt.Errorf("files table check: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files LIMIT 1`).Scan(&count); err != nil {
		return fmt.Errorf("count check: %w", err)
	}

	return nil
}

// fallbackToFS switches the scanner to FS mode on the first existing
// candidate directory, clearing knownItems so the filesystem scan starts
// fresh. Only announced once per scanner lifetime.
func (s *Scanner) fallbackToFS(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.warnedOnce {
		if s.log != nil {
			s.log.Warn("cache database unhealthy, falling back to filesystem scan: %v", cause)
		}
		s.warnedOnce = true
	}

	s.knownItems = make(map[string]struct{})
	s.mode = ModeFS

	for _, candidate := range s.candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			s.fsPath = candidate
			return
		}
	}
	// No candidate exists; fsPath keeps its prior value (may still not
	// exist, in which case scanFS yields nothing).
}

// scanDB iterates the files table of a healthy database.
func (s *Scanner) scanDB(ctx context.Context, cb Callback) error {
	db, err := sql.Open("sqlite3", s.dbPath+"?mode=ro&_query_only=true")
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, content FROM files`)
	if err != nil {
		return err
	}
	defer rows.Close()

	dbFolder := filepath.Dir(s.dbPath)

	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var rawID any
		var content []byte
		if err := rows.Scan(&rawID, &content); err != nil {
			if s.log != nil {
				s.log.Warn("scanner: skipping row: %v", err)
			}
			continue
		}

		identity, err := idToHex(rawID)
		if err != nil {
			if s.log != nil {
				s.log.Warn("scanner: skipping row with bad id: %v", err)
			}
			continue
		}

		s.mu.Lock()
		_, known := s.knownItems[identity]
		if !known {
			s.knownItems[identity] = struct{}{}
		}
		s.mu.Unlock()
		if known {
			continue
		}

		entry := Entry{Identity: identity}
		if content != nil {
			entry.Body = content
		} else {
			onDisk := filepath.Join(dbFolder, identity[:2], identity)
			if _, err := os.Stat(onDisk); err != nil {
				continue
			}
			entry.SourcePath = onDisk
		}

		cb(entry)
	}

	return rows.Err()
}

// idToHex normalizes a files.id column value (bytes or text) to lowercase
// hex.
func idToHex(raw any) (string, error) {
	switch v := raw.(type) {
	case []byte:
		// SQLite TEXT columns frequently surface as []byte through the
		// driver; only treat as raw binary if it doesn't already look
		// like a hex string.
		if isHexString(string(v)) {
			return strings.ToLower(string(v)), nil
		}
		return hex.EncodeToString(v), nil
	case string:
		if isHexString(v) {
			return strings.ToLower(v), nil
		}
		return hex.EncodeToString([]byte(v)), nil
	default:
		return "", errors.New("unsupported id column type")
	}
}

func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// scanFS lists files directly under s.fsPath, non-recursively.
func (s *Scanner) scanFS(ctx context.Context, cb Callback) error {
	s.mu.Lock()
	fsPath := s.fsPath
	s.mu.Unlock()

	if fsPath == "" {
		return nil
	}

	entries, err := os.ReadDir(fsPath)
	if err != nil {
		if s.log != nil {
			s.log.Warn("scanner: cannot read fs path %s: %v", fsPath, err)
		}
		return nil
	}

	for _, de := range entries {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if de.IsDir() {
			continue
		}

		identity := de.Name()

		s.mu.Lock()
		_, known := s.knownItems[identity]
		if !known {
			s.knownItems[identity] = struct{}{}
		}
		s.mu.Unlock()
		if known {
			continue
		}

		cb(Entry{
			Identity:   identity,
			SourcePath: filepath.Join(fsPath, identity),
		})
	}

	return nil
}
