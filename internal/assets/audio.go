package assets

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"rbxcache/internal/constants"
)

// DurationProber abstracts the external media tool's probe subcommand so
// the processor is testable without shelling out.
type DurationProber interface {
	// ProbeDuration returns the duration in seconds of the file at path.
	// An error is treated as duration 0 (falls into the shortest bucket),
	// matching spec §4.5.
	ProbeDuration(path string) (float64, error)
}

// AudioProcessor implements the audio branch of C7.
type AudioProcessor struct {
	Prober DurationProber
	Ext    string // "ogg" or "mp3"
}

// AudioIdentity computes the spec's legacy per-source identity: the
// source path joined with file size and modification time, so touching
// the cache file re-admits it until the content-hash cache catches it
// (preserved intentionally, see DESIGN.md).
func AudioIdentity(sourcePath string, size int64, modTime time.Time) string {
	return fmt.Sprintf("%s_%d_%d", sourcePath, size, modTime.UnixNano())
}

// Consume writes body to the output tree, returning the terminal Outcome.
// sourcePath seeds the output filename's basename; identity is the
// legacy path+size+mtime key used for history dedup.
func (p *AudioProcessor) Consume(ctx *Context, identity, sourcePath string, body []byte) (Outcome, error) {
	if ctx.History.IsProcessed(identity, constants.KindAudio) {
		ctx.Stats.Inc("already_processed")
		return AlreadyProcessed, nil
	}

	contentHash := hex.EncodeToString(md5Sum(body))
	if dup := ctx.HashCache.Insert(contentHash); dup {
		ctx.Stats.Inc("duplicate_files")
		return Duplicate, nil
	}

	tmpFile, err := os.CreateTemp(ctx.OutputDir, "audio-*.tmp")
	if err != nil {
		ctx.Stats.Inc("error_files")
		return Errored, err
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(body); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		ctx.Stats.Inc("error_files")
		return Errored, err
	}
	tmpFile.Close()

	category := p.classify(ctx, tmpPath, len(body))

	destDir := filepath.Join(ctx.OutputDir, category)
	if err := os.MkdirAll(destDir, constants.DirPermissions); err != nil {
		os.Remove(tmpPath)
		ctx.Stats.Inc("error_files")
		return Errored, err
	}

	base := filepath.Base(sourcePath)
	base = base[:len(base)-len(filepath.Ext(base))]
	if base == "" || base == "." {
		base = contentHash[:8]
	}
	finalName := fmt.Sprintf("%s_%s_%s.%s",
		base, time.Now().Format("20060102_150405"), randSuffix(), p.Ext)
	destPath := filepath.Join(destDir, finalName)

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		ctx.Stats.Inc("error_files")
		return Errored, err
	}

	ctx.History.Add(identity, constants.KindAudio)
	ctx.Stats.Inc("processed_files")
	return Processed, nil
}

func (p *AudioProcessor) classify(ctx *Context, tmpPath string, size int) string {
	if ctx.ClassificationMethod == constants.ClassifyByDuration && p.Prober != nil {
		seconds, err := p.Prober.ProbeDuration(tmpPath)
		if err != nil {
			seconds = 0
		}
		return DurationBucket(seconds)
	}
	return SizeBucket(size)
}

func md5Sum(b []byte) []byte {
	sum := md5.Sum(b)
	return sum[:]
}

// randSuffix returns a 4-hex-character random tag sliced from a fresh
// UUID, used to eliminate intra-run output filename collisions.
func randSuffix() string {
	id := uuid.New()
	s := id.String()
	// Strip hyphens and take the first constants.RandSuffixLen characters.
	clean := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			clean = append(clean, s[i])
		}
	}
	return string(clean[:constants.RandSuffixLen])
}
