// Package history implements the persistent cross-run dedup store: a
// per-asset-kind set of identity hashes and content hashes, loaded from
// and saved to a JSON file with atomic rename and legacy-format
// migration.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"rbxcache/internal/constants"
)

// bucket holds one asset kind's dedup sets.
type bucket struct {
	FileHashes    map[string]struct{} `json:"-"`
	ContentHashes map[string]struct{} `json:"-"`
}

func newBucket() *bucket {
	return &bucket{
		FileHashes:    make(map[string]struct{}),
		ContentHashes: make(map[string]struct{}),
	}
}

// bucketJSON is bucket's on-disk representation (sets as sorted-free
// arrays; order is not significant).
type bucketJSON struct {
	FileHashes    []string `json:"file_hashes"`
	ContentHashes []string `json:"content_hashes"`
}

func (b *bucket) toJSON() bucketJSON {
	out := bucketJSON{
		FileHashes:    make([]string, 0, len(b.FileHashes)),
		ContentHashes: make([]string, 0, len(b.ContentHashes)),
	}
	for h := range b.FileHashes {
		out.FileHashes = append(out.FileHashes, h)
	}
	for h := range b.ContentHashes {
		out.ContentHashes = append(out.ContentHashes, h)
	}
	return out
}

func bucketFromJSON(j bucketJSON) *bucket {
	b := newBucket()
	for _, h := range j.FileHashes {
		b.FileHashes[h] = struct{}{}
	}
	for _, h := range j.ContentHashes {
		b.ContentHashes[h] = struct{}{}
	}
	return b
}

// fileFormat is the structured on-disk JSON document.
type fileFormat struct {
	Records map[string]bucketJSON `json:"records"`

	// Legacy mirror fields, written alongside Records for backward
	// compatibility with older readers; always mirror the audio bucket.
	Hashes        []string `json:"hashes,omitempty"`
	ContentHashes []string `json:"content_hashes,omitempty"`
}

// History is the persistent per-kind dedup store described in spec §3/§4.7.
type History struct {
	mu      sync.Mutex
	path    string
	buckets map[string]*bucket
	dirty   bool
}

// knownKinds lists the buckets the store sets up front. A kind outside
// this set is not rejected: Add/IsProcessed create an empty bucket for it
// on first use.
var knownKinds = []string{
	constants.KindAudio,
	constants.KindFont,
	constants.KindImage,
	constants.KindTexture,
	constants.KindModel,
	constants.KindTranslation,
	constants.KindVideo,
	constants.KindOther,
}

func emptyBuckets() map[string]*bucket {
	m := make(map[string]*bucket, len(knownKinds))
	for _, k := range knownKinds {
		m[k] = newBucket()
	}
	return m
}

// New returns an empty History backed by path (not yet loaded from disk).
func New(path string) *History {
	return &History{path: path, buckets: emptyBuckets()}
}

// DefaultPath returns the standard history file location under the
// user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.HistoryDir, constants.HistoryFile), nil
}

// Load reads and parses the history file at h.path. A missing file is not
// an error: History starts empty. A legacy flat-array document is
// migrated into the audio bucket and the store is marked dirty so the
// next Save rewrites it in the structured form.
func Load(path string) (*History, error) {
	h := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, err
	}

	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if len(doc.Records) > 0 {
		for kind, bj := range doc.Records {
			h.buckets[kind] = bucketFromJSON(bj)
		}
		// Ensure every known kind has a bucket even if absent on disk.
		for _, k := range knownKinds {
			if _, ok := h.buckets[k]; !ok {
				h.buckets[k] = newBucket()
			}
		}
		return h, nil
	}

	if len(doc.Hashes) > 0 || len(doc.ContentHashes) > 0 {
		audio := newBucket()
		for _, hash := range doc.Hashes {
			audio.FileHashes[hash] = struct{}{}
		}
		for _, hash := range doc.ContentHashes {
			audio.ContentHashes[hash] = struct{}{}
		}
		h.buckets[constants.KindAudio] = audio
		h.dirty = true
	}

	return h, nil
}

// Add inserts identity into kind's identity set. If identity embeds a
// "{content}_{suffix}" pattern (the underscore-joined convention used by
// timestamped output filenames), the content portion is also recorded in
// kind's content set.
func (h *History) Add(identity, kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketUnsafe(kind)
	if _, ok := b.FileHashes[identity]; !ok {
		b.FileHashes[identity] = struct{}{}
		h.dirty = true
	}

	if content, ok := splitContentPrefix(identity); ok {
		if _, ok := b.ContentHashes[content]; !ok {
			b.ContentHashes[content] = struct{}{}
			h.dirty = true
		}
	}
}

// AddContent records content directly in kind's content set, independent
// of any identity string. Used by processors (font resolver, video
// assembler) whose identity and content hash are computed separately.
func (h *History) AddContent(content, kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketUnsafe(kind)
	if _, ok := b.ContentHashes[content]; !ok {
		b.ContentHashes[content] = struct{}{}
		h.dirty = true
	}
}

// splitContentPrefix extracts the content portion of an identity formatted
// as "{content}_{suffix}" (suffix may itself contain underscores, e.g. a
// timestamp joined with a random tag). Returns ok=false if no underscore
// is present.
func splitContentPrefix(identity string) (content string, ok bool) {
	idx := strings.Index(identity, "_")
	if idx <= 0 {
		return "", false
	}
	return identity[:idx], true
}

// IsProcessed reports whether identity is already recorded under kind.
func (h *History) IsProcessed(identity, kind string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketUnsafe(kind)
	_, ok := b.FileHashes[identity]
	return ok
}

// IsContentProcessed reports whether content is already recorded under
// kind's content set.
func (h *History) IsContentProcessed(content, kind string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketUnsafe(kind)
	_, ok := b.ContentHashes[content]
	return ok
}

// Clear wipes one bucket (kind != "") or every bucket (kind == ""), marks
// the store dirty, and saves immediately.
func (h *History) Clear(kind string) error {
	h.mu.Lock()
	if kind == "" {
		h.buckets = emptyBuckets()
	} else {
		h.buckets[kind] = newBucket()
	}
	h.dirty = true
	h.mu.Unlock()

	return h.Save()
}

// Identities returns a snapshot of kind's identity set, used by the
// orchestrator's process-pool mode to seed a worker-local copy of history
// at fork time and to diff against after join.
func (h *History) Identities(kind string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketUnsafe(kind)
	out := make([]string, 0, len(b.FileHashes))
	for id := range b.FileHashes {
		out = append(out, id)
	}
	return out
}

// ContentHashesOf returns a snapshot of kind's content-hash set, for the
// same process-pool snapshot/merge purpose as Identities.
func (h *History) ContentHashesOf(kind string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketUnsafe(kind)
	out := make([]string, 0, len(b.ContentHashes))
	for c := range b.ContentHashes {
		out = append(out, c)
	}
	return out
}

// Size returns the identity-set size for kind, or the sum across all
// kinds if kind is "".
func (h *History) Size(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if kind != "" {
		return len(h.bucketUnsafe(kind).FileHashes)
	}

	total := 0
	for _, b := range h.buckets {
		total += len(b.FileHashes)
	}
	return total
}

// bucketUnsafe returns kind's bucket, creating an empty one if absent.
// Caller must hold h.mu.
func (h *History) bucketUnsafe(kind string) *bucket {
	b, ok := h.buckets[kind]
	if !ok {
		b = newBucket()
		h.buckets[kind] = b
	}
	return b
}

// Save writes the structured document (plus the legacy audio mirror) to
// h.path via a temporary file and atomic rename, unconditionally.
func (h *History) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveUnsafe()
}

// SaveIfDirty saves only when mutations occurred since the last save,
// matching the orchestrator's end-of-run "save once" behavior.
func (h *History) SaveIfDirty() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dirty {
		return nil
	}
	return h.saveUnsafe()
}

func (h *History) saveUnsafe() error {
	doc := fileFormat{Records: make(map[string]bucketJSON, len(h.buckets))}
	for kind, b := range h.buckets {
		doc.Records[kind] = b.toJSON()
	}

	audio := h.bucketUnsafe(constants.KindAudio)
	audioJSON := audio.toJSON()
	doc.Hashes = audioJSON.FileHashes
	doc.ContentHashes = audioJSON.ContentHashes

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".history-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	h.dirty = false
	return nil
}
