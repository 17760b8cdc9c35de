package assets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rbxcache/internal/constants"
)

type fakeFetcher struct {
	bodies map[string][]byte
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{bodies: map[string][]byte{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.bodies[url], nil
}

type fakeMediaTool struct {
	repairErr error
	concatErr error
	repaired  []string
	concated  bool
}

func (f *fakeMediaTool) RepairTimestamps(ctx context.Context, segPath, outPath string) error {
	if f.repairErr != nil {
		return f.repairErr
	}
	f.repaired = append(f.repaired, outPath)
	return os.WriteFile(outPath, []byte("repaired"), constants.FilePermissions)
}

func (f *fakeMediaTool) Concat(ctx context.Context, listPath, outPath string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	f.concated = true
	return os.WriteFile(outPath, []byte("final webm"), constants.FilePermissions)
}

const testMasterPlaylist = `#EXTM3U
#EXT-X-DEFINE:NAME="RBX-BASE-URI" VALUE="https://cdn.example.com/v1/"
#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1920x1080
{$RBX-BASE-URI}1080p.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=600000,RESOLUTION=854x480
{$RBX-BASE-URI}480p.m3u8
`

const testMediaPlaylist = `#EXTM3U
#EXTINF:6.0,
{$RBX-BASE-URI}seg0.ts
#EXTINF:6.0,
{$RBX-BASE-URI}seg1.ts
#EXT-X-ENDLIST
`

func TestVideoProcessor_FullAssemblyAutoQuality(t *testing.T) {
	ctx := newTestContext(t)
	ctx.ClassificationMethod = constants.ClassifyByResolution

	fetcher := newFakeFetcher()
	fetcher.bodies["https://cdn.example.com/v1/1080p.m3u8"] = []byte(testMediaPlaylist)
	fetcher.bodies["https://cdn.example.com/v1/seg0.ts"] = []byte("segment0")
	fetcher.bodies["https://cdn.example.com/v1/seg1.ts"] = []byte("segment1")

	tool := &fakeMediaTool{}
	p := &VideoProcessor{
		Fetcher:           fetcher,
		Tool:              tool,
		QualityPreference: constants.VideoQualityAuto,
		TimestampRepair:   true,
		AutoCleanup:       true,
	}

	outcome, err := p.Consume(context.Background(), ctx, []byte(testMasterPlaylist))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if outcome != Processed {
		t.Fatalf("outcome = %v, want Processed", outcome)
	}
	if !tool.concated {
		t.Error("expected Concat to be invoked")
	}
	if len(tool.repaired) != 2 {
		t.Errorf("repaired %d segments, want 2", len(tool.repaired))
	}

	entries, err := os.ReadDir(filepath.Join(ctx.OutputDir, "1080p"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 output file in 1080p/, got %d", len(entries))
	}
}

func TestVideoProcessor_AlreadyProcessedSkipsNetwork(t *testing.T) {
	ctx := newTestContext(t)
	fetcher := newFakeFetcher() // no bodies registered: any Get call fails the test's expectations
	tool := &fakeMediaTool{}
	p := &VideoProcessor{Fetcher: fetcher, Tool: tool}

	body := []byte(testMasterPlaylist)
	sum := md5.Sum(body)
	videoHash := hex.EncodeToString(sum[:])
	ctx.History.Add(videoHash, constants.KindVideo)

	outcome, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if outcome != AlreadyProcessed {
		t.Fatalf("outcome = %v, want AlreadyProcessed", outcome)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("expected no network calls for an already-processed video, got %v", fetcher.calls)
	}
}

func TestVideoProcessor_NoTimestampRepairStillRenames(t *testing.T) {
	ctx := newTestContext(t)
	ctx.ClassificationMethod = constants.ClassifyByResolution

	fetcher := newFakeFetcher()
	fetcher.bodies["https://cdn.example.com/v1/1080p.m3u8"] = []byte(testMediaPlaylist)
	fetcher.bodies["https://cdn.example.com/v1/seg0.ts"] = []byte("segment0")
	fetcher.bodies["https://cdn.example.com/v1/seg1.ts"] = []byte("segment1")

	tool := &fakeMediaTool{}
	p := &VideoProcessor{
		Fetcher:           fetcher,
		Tool:              tool,
		QualityPreference: constants.VideoQualityAuto,
		TimestampRepair:   false,
		AutoCleanup:       false,
	}

	outcome, err := p.Consume(context.Background(), ctx, []byte(testMasterPlaylist))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if outcome != Processed {
		t.Fatalf("outcome = %v, want Processed", outcome)
	}
	if len(tool.repaired) != 0 {
		t.Errorf("RepairTimestamps should not be invoked when TimestampRepair is false")
	}
	if !tool.concated {
		t.Error("expected Concat to still be invoked with renamed segments")
	}
}

func TestVideoProcessor_SegmentDownloadFailureAbortsVideo(t *testing.T) {
	ctx := newTestContext(t)
	ctx.ClassificationMethod = constants.ClassifyByResolution

	fetcher := newFakeFetcher()
	fetcher.bodies["https://cdn.example.com/v1/1080p.m3u8"] = []byte(testMediaPlaylist)
	fetcher.errs["https://cdn.example.com/v1/seg0.ts"] = errors.New("connection reset")

	tool := &fakeMediaTool{}
	p := &VideoProcessor{
		Fetcher:           fetcher,
		Tool:              tool,
		QualityPreference: constants.VideoQualityAuto,
		SegmentMaxRetries: 1,
	}

	outcome, err := p.Consume(context.Background(), ctx, []byte(testMasterPlaylist))
	if err == nil {
		t.Fatal("expected error from segment download failure")
	}
	if outcome != Errored {
		t.Fatalf("outcome = %v, want Errored", outcome)
	}
	if ctx.Stats.Get("download_failures") != 1 {
		t.Errorf("download_failures = %d, want 1", ctx.Stats.Get("download_failures"))
	}
}

func TestVideoProcessor_LowestQualitySelectsLowestBandwidth(t *testing.T) {
	ctx := newTestContext(t)
	ctx.ClassificationMethod = constants.ClassifyByResolution

	fetcher := newFakeFetcher()
	fetcher.bodies["https://cdn.example.com/v1/480p.m3u8"] = []byte(testMediaPlaylist)
	fetcher.bodies["https://cdn.example.com/v1/seg0.ts"] = []byte("segment0")
	fetcher.bodies["https://cdn.example.com/v1/seg1.ts"] = []byte("segment1")

	tool := &fakeMediaTool{}
	p := &VideoProcessor{
		Fetcher:           fetcher,
		Tool:              tool,
		QualityPreference: constants.VideoQualityLowest,
		TimestampRepair:   true,
		AutoCleanup:       true,
	}

	outcome, err := p.Consume(context.Background(), ctx, []byte(testMasterPlaylist))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if outcome != Processed {
		t.Fatalf("outcome = %v, want Processed", outcome)
	}

	if _, err := os.Stat(filepath.Join(ctx.OutputDir, "480p")); err != nil {
		t.Errorf("expected 480p category dir: %v", err)
	}
}
