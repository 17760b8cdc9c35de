package assets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rbxcache/internal/constants"
)

type fakeResolver struct {
	payloads map[string][]byte
	errs     map[string]error
	calls    int
}

func (f *fakeResolver) Resolve(ctx context.Context, assetIDNum string) ([]byte, error) {
	f.calls++
	if err, ok := f.errs[assetIDNum]; ok {
		return nil, err
	}
	return f.payloads[assetIDNum], nil
}

func buildFontListBody(t *testing.T, name string, faces []fontFace) []byte {
	t.Helper()
	data, err := json.Marshal(fontListDoc{Name: name, Faces: faces})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestFontProcessor_ResolvesRemoteFace(t *testing.T) {
	ctx := newTestContext(t)
	resolver := &fakeResolver{payloads: map[string][]byte{"100": []byte("ttf bytes")}}
	p := &FontProcessor{Resolver: resolver}

	body := buildFontListBody(t, "Arial", []fontFace{
		{Name: "Regular", AssetID: "rbxassetid://100"},
	})

	outcome, results, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if outcome != Processed {
		t.Fatalf("outcome = %v, want Processed", outcome)
	}
	if len(results) != 1 || results[0].Outcome != Processed {
		t.Fatalf("results = %+v, want single Processed result", results)
	}

	listPath := filepath.Join(ctx.OutputDir, "Arial", "Arial.json")
	if _, err := os.Stat(listPath); err != nil {
		t.Fatalf("expected font list JSON at %s: %v", listPath, err)
	}

	facePath := filepath.Join(ctx.OutputDir, "Arial", "Regular", "Arial-Regular.ttf")
	data, err := os.ReadFile(facePath)
	if err != nil {
		t.Fatalf("expected face file at %s: %v", facePath, err)
	}
	if string(data) != "ttf bytes" {
		t.Errorf("face content = %q, want %q", data, "ttf bytes")
	}
}

func TestFontProcessor_SkipsLocalAsset(t *testing.T) {
	ctx := newTestContext(t)
	resolver := &fakeResolver{}
	p := &FontProcessor{Resolver: resolver}

	body := buildFontListBody(t, "Arial", []fontFace{
		{Name: "Regular", AssetID: "rbxasset://fonts/arial.ttf"},
	})

	_, results, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != SkippedLocal {
		t.Fatalf("results = %+v, want single SkippedLocal result", results)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver.calls = %d, want 0 (local asset should not hit the network)", resolver.calls)
	}
}

func TestFontProcessor_AlreadyProcessedFaceSkipsDownload(t *testing.T) {
	ctx := newTestContext(t)
	resolver := &fakeResolver{payloads: map[string][]byte{"200": []byte("bytes")}}
	p := &FontProcessor{Resolver: resolver}

	body := buildFontListBody(t, "Roboto", []fontFace{
		{Name: "Bold", AssetID: "rbxassetid://200"},
	})

	if _, _, err := p.Consume(context.Background(), ctx, body); err != nil {
		t.Fatalf("first Consume failed: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("calls after first Consume = %d, want 1", resolver.calls)
	}

	_, results, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("second Consume failed: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != AlreadyProcessed {
		t.Fatalf("results = %+v, want AlreadyProcessed", results)
	}
	if resolver.calls != 1 {
		t.Errorf("calls after second Consume = %d, want still 1 (no re-download)", resolver.calls)
	}
}

func TestFontProcessor_DownloadFailureCountsAsErrored(t *testing.T) {
	ctx := newTestContext(t)
	resolver := &fakeResolver{errs: map[string]error{"300": errors.New("network down")}}
	p := &FontProcessor{Resolver: resolver}

	body := buildFontListBody(t, "Roboto", []fontFace{
		{Name: "Italic", AssetID: "rbxassetid://300"},
	})

	_, results, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != Errored {
		t.Fatalf("results = %+v, want Errored", results)
	}
	if ctx.Stats.Get("download_failures") != 1 {
		t.Errorf("download_failures = %d, want 1", ctx.Stats.Get("download_failures"))
	}
}

func TestFontProcessor_DuplicateContentAcrossFaces(t *testing.T) {
	ctx := newTestContext(t)
	resolver := &fakeResolver{payloads: map[string][]byte{
		"1": []byte("shared bytes"),
		"2": []byte("shared bytes"),
	}}
	p := &FontProcessor{Resolver: resolver}

	body := buildFontListBody(t, "Dup", []fontFace{
		{Name: "Regular", AssetID: "rbxassetid://1"},
		{Name: "Bold", AssetID: "rbxassetid://2"},
	})

	_, results, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != Processed {
		t.Errorf("first face outcome = %v, want Processed", results[0].Outcome)
	}
	if results[1].Outcome != Duplicate {
		t.Errorf("second face outcome = %v, want Duplicate", results[1].Outcome)
	}
}

func TestFontProcessor_FileExistsTreatedAsIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	resolver := &fakeResolver{payloads: map[string][]byte{"999": []byte("bytes")}}
	p := &FontProcessor{Resolver: resolver}

	destDir := filepath.Join(ctx.OutputDir, "Pre", "Regular")
	if err := os.MkdirAll(destDir, constants.DirPermissions); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(destDir, "Pre-Regular.ttf"), []byte("preexisting"), constants.FilePermissions); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	body := buildFontListBody(t, "Pre", []fontFace{
		{Name: "Regular", AssetID: "rbxassetid://999"},
	})

	_, results, err := p.Consume(context.Background(), ctx, body)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != AlreadyProcessed {
		t.Fatalf("results = %+v, want AlreadyProcessed (idempotent replay)", results)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "Pre-Regular.ttf"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "preexisting" {
		t.Errorf("existing file should not be overwritten, got %q", data)
	}
}
