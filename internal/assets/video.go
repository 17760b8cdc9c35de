package assets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"rbxcache/internal/constants"
	"rbxcache/internal/hls"
)

// SegmentFetcher abstracts the network GET used both for the chosen media
// playlist and for each segment, so the assembler is testable without a
// real HTTP round trip.
type SegmentFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// MediaTool abstracts the external tool's repair and concat subcommands
// (internal/mediatool.Tool satisfies this).
type MediaTool interface {
	RepairTimestamps(ctx context.Context, segPath, outPath string) error
	Concat(ctx context.Context, listPath, outPath string) error
}

// VideoProcessor implements the video branch of C7: the HLS assembler.
type VideoProcessor struct {
	Fetcher           SegmentFetcher
	Tool              MediaTool
	QualityPreference string // "auto", "lowest", or a target height like "720"
	TimestampRepair   bool
	AutoCleanup       bool
	SegmentMaxRetries int
	SegmentRetryWait  time.Duration
}

func (p *VideoProcessor) policy() hls.SelectionPolicy {
	switch p.QualityPreference {
	case constants.VideoQualityLowest:
		return hls.LowestPolicy()
	case constants.VideoQualityAuto, "":
		return hls.AutoPolicy()
	default:
		if h, err := strconv.Atoi(p.QualityPreference); err == nil {
			return hls.TargetHeightPolicy(h)
		}
		return hls.AutoPolicy()
	}
}

// Consume parses a master playlist body, selects a stream, downloads and
// repairs every segment in order, then concatenates them into the final
// webm. Cancellation is observed between segments.
func (p *VideoProcessor) Consume(ctx context.Context, actx *Context, body []byte) (Outcome, error) {
	sum := md5.Sum(body)
	videoHash := hex.EncodeToString(sum[:])

	if actx.History.IsProcessed(videoHash, constants.KindVideo) {
		actx.Stats.Inc("already_processed")
		return AlreadyProcessed, nil
	}

	master, err := hls.ParseMaster(body)
	if err != nil {
		actx.Stats.Inc("error_files")
		return Errored, err
	}

	stream, err := hls.SelectStream(master.Streams, p.policy())
	if err != nil {
		actx.Stats.Inc("error_files")
		return Errored, err
	}

	mediaBody, err := p.Fetcher.Get(ctx, stream.URL)
	if err != nil {
		actx.Stats.Inc("download_failures")
		return Errored, fmt.Errorf("assets: fetching media playlist: %w", err)
	}

	media, err := hls.ParseMedia(mediaBody, master.BaseURI)
	if err != nil {
		actx.Stats.Inc("error_files")
		return Errored, err
	}

	category := resolutionCategory(stream)
	if actx.ClassificationMethod != constants.ClassifyByResolution {
		category = SizeBucket(len(body))
	}

	segDir, err := os.MkdirTemp(actx.OutputDir, "hls-segments-*")
	if err != nil {
		actx.Stats.Inc("error_files")
		return Errored, err
	}
	cleanup := func() {
		if p.AutoCleanup {
			os.RemoveAll(segDir)
		}
	}

	repairedNames := make([]string, 0, len(media.SegmentURLs))
	for i, url := range media.SegmentURLs {
		select {
		case <-ctx.Done():
			cleanup()
			actx.Stats.Inc("download_failures")
			return Errored, ctx.Err()
		default:
		}

		segBody, err := p.downloadWithRetry(ctx, url)
		if err != nil {
			cleanup()
			actx.Stats.Inc("download_failures")
			return Errored, fmt.Errorf("assets: downloading segment %d: %w", i, err)
		}

		rawPath := filepath.Join(segDir, fmt.Sprintf("seg%05d.ts", i))
		if err := os.WriteFile(rawPath, segBody, constants.FilePermissions); err != nil {
			cleanup()
			actx.Stats.Inc("error_files")
			return Errored, err
		}
		actx.Stats.Inc("segments_downloaded")

		repairedPath := filepath.Join(segDir, fmt.Sprintf("seg%05d-repaired.webm", i))
		if p.TimestampRepair {
			if err := p.Tool.RepairTimestamps(ctx, rawPath, repairedPath); err != nil {
				cleanup()
				actx.Stats.Inc("merge_failures")
				return Errored, fmt.Errorf("assets: repairing segment %d: %w", i, err)
			}
			os.Remove(rawPath)
		} else {
			// Repair disabled: still rename to the repaired-suffix name so
			// downstream handling (segment list, concat) stays uniform.
			if err := os.Rename(rawPath, repairedPath); err != nil {
				cleanup()
				actx.Stats.Inc("error_files")
				return Errored, err
			}
		}
		repairedNames = append(repairedNames, repairedPath)
	}

	listPath := filepath.Join(segDir, "segments.txt")
	if err := writeSegmentList(listPath, repairedNames); err != nil {
		cleanup()
		actx.Stats.Inc("error_files")
		return Errored, err
	}

	destDir := filepath.Join(actx.OutputDir, category)
	if err := os.MkdirAll(destDir, constants.DirPermissions); err != nil {
		cleanup()
		actx.Stats.Inc("error_files")
		return Errored, err
	}
	destPath := filepath.Join(destDir, videoHash+".webm")

	if err := p.Tool.Concat(ctx, listPath, destPath); err != nil {
		cleanup()
		actx.Stats.Inc("merge_failures")
		return Errored, fmt.Errorf("assets: concatenating segments: %w", err)
	}

	cleanup()
	actx.History.Add(videoHash, constants.KindVideo)
	actx.Stats.Inc("processed_videos")
	actx.Stats.Inc("merged_videos")
	return Processed, nil
}

func (p *VideoProcessor) downloadWithRetry(ctx context.Context, url string) ([]byte, error) {
	maxRetries := p.SegmentMaxRetries
	if maxRetries < 1 {
		maxRetries = constants.SegmentMaxRetries
	}
	wait := p.SegmentRetryWait
	if wait <= 0 {
		wait = constants.SegmentRetryWait
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		body, err := p.Fetcher.Get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}

func resolutionCategory(s hls.Stream) string {
	if h := s.Height(); h > 0 {
		return fmt.Sprintf("%dp", h)
	}
	return "unknown_resolution"
}

func writeSegmentList(listPath string, names []string) error {
	f, err := os.Create(listPath)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range names {
		if _, err := fmt.Fprintf(f, "file '%s'\n", name); err != nil {
			return err
		}
	}
	return nil
}
