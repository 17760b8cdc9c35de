// Package orchestrator implements the extraction pipeline engine (C10):
// it drives a Scanner, parses each entry's RBXH frame, identifies the
// payload, and dispatches it to the matching asset processor across a
// bounded worker pool, reporting progress and a final tally.
package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"rbxcache/internal/assets"
	"rbxcache/internal/constants"
	"rbxcache/internal/hashcache"
	"rbxcache/internal/history"
	"rbxcache/internal/identify"
	"rbxcache/internal/logger"
	"rbxcache/internal/rbxh"
	"rbxcache/internal/scanner"
	"rbxcache/internal/stats"
)

// CancelToken is a thread-safe cancellation flag a caller can set from
// outside the goroutine running Extract (e.g. a CLI signal handler).
type CancelToken struct {
	flag atomic.Bool
}

// Cancel marks the token as signaled. Idempotent.
func (c *CancelToken) Cancel() { c.flag.Store(true) }

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool { return c.flag.Load() }

// ProgressEvent is one throttled progress snapshot emitted during Extract.
type ProgressEvent struct {
	Done    int64
	Total   int64
	Elapsed time.Duration
	Counts  map[string]int64
}

// ProgressSink receives ProgressEvents at up to constants.ProgressSinkMaxHz.
type ProgressSink func(ProgressEvent)

// Config configures one Extract run.
type Config struct {
	OutputDir            string
	NumWorkers           int
	ParallelModel        string // constants.ParallelThreaded or ParallelProcessPool
	ClassificationMethod string
	BlockAvatarImages    bool
	History              *history.History
	Cancel               *CancelToken
	Progress             ProgressSink
}

// Report is the final tally of one Extract run (spec §4.4's ExtractionReport).
type Report struct {
	Done      int64
	Total     int64
	Elapsed   time.Duration
	Counts    map[string]int64
	Cancelled bool
}

// Engine bundles the scanner and every per-kind processor needed to
// drive a full extraction run.
type Engine struct {
	Log     *logger.Logger
	Scanner *scanner.Scanner

	AudioOGG    *assets.AudioProcessor
	AudioMP3    *assets.AudioProcessor
	Image       *assets.ImageProcessor
	Translation *assets.TranslationProcessor
	Font        *assets.FontProcessor
	Video       *assets.VideoProcessor
}

// targetKind maps an identified payload kind to the history/output bucket
// name the caller requested via Extract's kind argument. Kinds with no
// processor (RbxmModel, Mesh — decoding their binary payload is out of
// scope) never match any target and are silently skipped.
func targetKind(k identify.Kind) (string, bool) {
	switch k {
	case identify.AudioOGG, identify.AudioMP3:
		return constants.KindAudio, true
	case identify.ImagePNG, identify.ImageJPEG, identify.ImageGIF,
		identify.ImageWebPSafe, identify.ImageWebPAvatar, identify.KtxTexture:
		return constants.KindImage, true
	case identify.FontList:
		return constants.KindFont, true
	case identify.HlsPlaylist:
		return constants.KindVideo, true
	case identify.Translation:
		return constants.KindTranslation, true
	default:
		return "", false
	}
}

// job is one identified, dispatch-ready unit of work.
type job struct {
	entry scanner.Entry
	frame *rbxh.Frame
	kind  identify.Kind
	body  []byte
}

// Extract runs one full pipeline pass, writing only entries whose
// identified kind matches targetKindName (one of constants.Kind*).
//
// Per spec's propagation policy, Extract returns a non-nil error only for
// the three conditions that abort the whole run: the output root cannot
// be created, cancellation was signaled before the run started, or the
// history fails to save at the end. Cancellation during the run returns
// a Report with Cancelled set and a nil error. A cache path that yields no usable input (CachePathUnavailable) is not
// one of these: it produces an empty, error-free Report.
func (e *Engine) Extract(ctx context.Context, targetKindName string, cfg Config) (Report, error) {
	start := time.Now()

	outputRoot := filepath.Join(cfg.OutputDir, categoryForKind(targetKindName))
	if err := os.MkdirAll(outputRoot, constants.DirPermissions); err != nil {
		return Report{}, WrapEngineError(ErrCodeProcessorWriteFailure, "creating output root", err)
	}

	if cfg.Cancel != nil && cfg.Cancel.Cancelled() {
		return Report{}, ErrCancelled
	}

	st := stats.New()
	hc := hashcache.New()
	actx := &assets.Context{
		OutputDir:            outputRoot,
		BlockAvatarImages:    cfg.BlockAvatarImages,
		ClassificationMethod: cfg.ClassificationMethod,
		History:              cfg.History,
		HashCache:            hc,
		Stats:                st,
	}

	jobs := e.collect(ctx, targetKindName, cfg.BlockAvatarImages, st)
	total := int64(len(jobs))

	var processPoolHistory *history.History
	if cfg.ParallelModel == constants.ParallelProcessPool {
		processPoolHistory = snapshotHistory(cfg.History, targetKindName)
		actx.History = processPoolHistory
	}

	numWorkers := cfg.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	var done int64
	var lastReport time.Time
	var reportMu sync.Mutex
	minInterval := time.Second / time.Duration(maxInt(1, constants.ProgressSinkMaxHz))

	reportProgress := func() {
		if cfg.Progress == nil {
			return
		}
		reportMu.Lock()
		defer reportMu.Unlock()
		now := time.Now()
		d := atomic.LoadInt64(&done)
		if now.Sub(lastReport) < minInterval && d < total {
			return
		}
		lastReport = now
		cfg.Progress(ProgressEvent{
			Done:    d,
			Total:   total,
			Elapsed: now.Sub(start),
			Counts:  st.Snapshot(),
		})
	}

	jobCh := make(chan job)
	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			if cfg.Cancel != nil && cfg.Cancel.Cancelled() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobCh <- j:
			}
		}
	}()

	var wg sync.WaitGroup
	cancelled := false
	var cancelledMu sync.Mutex

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if cfg.Cancel != nil && cfg.Cancel.Cancelled() {
					cancelledMu.Lock()
					cancelled = true
					cancelledMu.Unlock()
					continue
				}
				e.dispatch(ctx, actx, j)
				atomic.AddInt64(&done, 1)
				reportProgress()
			}
		}()
	}
	wg.Wait()

	if cfg.ParallelModel == constants.ParallelProcessPool {
		mergeHistory(cfg.History, processPoolHistory, targetKindName)
	}

	if err := cfg.History.SaveIfDirty(); err != nil {
		return Report{}, WrapEngineError(ErrCodeCacheBackendCorrupt, "saving history", err)
	}

	if cfg.Progress != nil {
		cfg.Progress(ProgressEvent{
			Done:    atomic.LoadInt64(&done),
			Total:   total,
			Elapsed: time.Since(start),
			Counts:  st.Snapshot(),
		})
	}

	return Report{
		Done:      atomic.LoadInt64(&done),
		Total:     total,
		Elapsed:   time.Since(start),
		Counts:    st.Snapshot(),
		Cancelled: cancelled,
	}, nil
}

// collect drains the scanner into memory, decoding and identifying each
// entry. Per-entry failures (bad RBXH frame, unrecognized payload) are
// folded into counters and never abort the run; this is the
// CachePathUnavailable case in the degenerate limit where every scan
// yields nothing.
func (e *Engine) collect(ctx context.Context, targetKindName string, blockAvatarImages bool, st *stats.Stats) []job {
	var jobs []job

	cb := func(entry scanner.Entry) {
		body := entry.Body
		if body == nil {
			raw, err := os.ReadFile(entry.SourcePath)
			if err != nil {
				st.Inc(stats.ErrorFiles)
				return
			}
			body = raw
		}

		frame, err := rbxh.NewParser().Parse(bytes.NewReader(body))
		if err != nil {
			st.Inc(stats.ErrorFiles)
			return
		}

		result := identify.Identify(frame.Body, identify.Options{BlockAvatarImages: blockAvatarImages})
		if result.Kind == identify.Ignored {
			st.Inc(stats.IgnoredFiles)
			return
		}
		if result.Kind == identify.Unknown {
			st.Inc(stats.UnknownFiles)
			return
		}

		kind, ok := targetKind(result.Kind)
		if !ok || kind != targetKindName {
			return
		}

		jobs = append(jobs, job{entry: entry, frame: frame, kind: result.Kind, body: frame.Body})
	}

	if e.Scanner != nil {
		e.Scanner.Scan(ctx, cb)
	}
	return jobs
}

// dispatch routes one job to its matching processor. Every outcome is
// folded into actx.Stats by the processor itself; dispatch only logs.
func (e *Engine) dispatch(ctx context.Context, actx *assets.Context, j job) {
	var outcome assets.Outcome
	var err error

	switch j.kind {
	case identify.AudioOGG:
		outcome, err = e.AudioOGG.Consume(actx, audioIdentity(j), sourcePathFor(j), j.body)
	case identify.AudioMP3:
		outcome, err = e.AudioMP3.Consume(actx, audioIdentity(j), sourcePathFor(j), j.body)
	case identify.ImagePNG, identify.ImageJPEG, identify.ImageGIF,
		identify.ImageWebPSafe, identify.ImageWebPAvatar, identify.KtxTexture:
		outcome, err = e.Image.Consume(actx, j.kind, imageIdentity(j), sourcePathFor(j), j.body)
	case identify.Translation:
		outcome, err = e.Translation.Consume(actx, j.body)
	case identify.FontList:
		outcome, _, err = e.Font.Consume(ctx, actx, j.body)
	case identify.HlsPlaylist:
		outcome, err = e.Video.Consume(ctx, actx, j.body)
	}

	if err != nil && e.Log != nil {
		e.Log.Warn("orchestrator: %s entry %s: outcome=%s err=%v", j.kind, j.entry.Identity, outcome, err)
	}
}

// audioIdentity and imageIdentity derive the legacy source+size+mtime
// identity from what a scanner.Entry actually exposes. RBXH frames carry
// no modification time of their own, so the moment of scan stands in for
// it; the frame's URL stands in for the filesystem source path a legacy
// on-disk scan would have used.
func audioIdentity(j job) string {
	return assets.AudioIdentity(sourcePathFor(j), int64(len(j.body)), time.Now())
}

func imageIdentity(j job) string {
	return assets.ImageIdentity(sourcePathFor(j), int64(len(j.body)), time.Now())
}

func sourcePathFor(j job) string {
	if j.frame.URL != "" {
		return j.frame.URL
	}
	return j.entry.SourcePath
}

func categoryForKind(kind string) string {
	switch kind {
	case constants.KindAudio:
		return constants.CategorySounds
	case constants.KindImage, constants.KindTexture:
		return constants.CategoryTextures
	case constants.KindFont:
		return constants.CategoryFonts
	case constants.KindVideo:
		return constants.CategoryVideos
	case constants.KindTranslation:
		return constants.CategoryTranslations
	default:
		return kind
	}
}

// snapshotHistory copies kind's identity and content-hash sets out of
// src into a freestanding History, standing in for the immutable
// per-worker snapshot a true forked process would inherit at birth.
func snapshotHistory(src *history.History, kind string) *history.History {
	snap := history.New("")
	if src == nil {
		return snap
	}
	for _, id := range src.Identities(kind) {
		snap.Add(id, kind)
	}
	for _, c := range src.ContentHashesOf(kind) {
		snap.AddContent(c, kind)
	}
	return snap
}

// mergeHistory folds every identity and content hash the process-pool
// snapshot gained during the run back into the shared, authoritative
// History, the merge half of the fork/merge contract.
func mergeHistory(dst, snap *history.History, kind string) {
	if dst == nil || snap == nil {
		return
	}
	for _, id := range snap.Identities(kind) {
		dst.Add(id, kind)
	}
	for _, c := range snap.ContentHashesOf(kind) {
		dst.AddContent(c, kind)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
