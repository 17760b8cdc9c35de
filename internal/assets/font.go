package assets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rbxcache/internal/constants"
	"rbxcache/internal/sanitize"
)

// fontListDoc is the on-wire shape of a FontList cache entry.
type fontListDoc struct {
	Name  string     `json:"name"`
	Faces []fontFace `json:"faces"`
}

type fontFace struct {
	Name    string `json:"name"`
	AssetID string `json:"assetId"`
}

// FaceResolver abstracts the CDN download step (internal/fontresolver) so
// the processor is testable without a network call.
type FaceResolver interface {
	Resolve(ctx context.Context, assetIDNum string) ([]byte, error)
}

// FontProcessor implements the font branch of C7: it saves the font-list
// JSON verbatim and resolves each rbxassetid:// face to a .ttf file via
// FaceResolver.
type FontProcessor struct {
	Resolver FaceResolver
}

// FaceResult reports the terminal outcome of resolving one face. The
// orchestrator does not read these results; in process-pool mode new
// identities reach the shared history through its snapshot merge.
type FaceResult struct {
	Identity string
	Outcome  Outcome
	Err      error
}

// Consume saves the font-list JSON verbatim and resolves every
// rbxassetid:// face, returning one FaceResult per face plus the overall
// outcome for the list body itself.
func (p *FontProcessor) Consume(ctx context.Context, actx *Context, body []byte) (Outcome, []FaceResult, error) {
	var doc fontListDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		actx.Stats.Inc("error_files")
		return Errored, nil, fmt.Errorf("assets: parsing font list: %w", err)
	}

	family := sanitize.FamilyFolder(doc.Name)
	familyDir := filepath.Join(actx.OutputDir, family)
	if err := os.MkdirAll(familyDir, constants.DirPermissions); err != nil {
		actx.Stats.Inc("error_files")
		return Errored, nil, err
	}

	listPath := filepath.Join(familyDir, family+".json")
	if err := os.WriteFile(listPath, body, constants.FilePermissions); err != nil {
		actx.Stats.Inc("error_files")
		return Errored, nil, err
	}
	actx.Stats.Inc("fontlist_found")

	results := make([]FaceResult, 0, len(doc.Faces))
	for _, face := range doc.Faces {
		results = append(results, p.resolveFace(ctx, actx, family, familyDir, face))
	}

	return Processed, results, nil
}

func (p *FontProcessor) resolveFace(ctx context.Context, actx *Context, family, familyDir string, face fontFace) FaceResult {
	switch {
	case strings.HasPrefix(face.AssetID, constants.FontAssetLocalPrefix):
		actx.Stats.Inc("fonts_skipped_local")
		return FaceResult{Identity: face.AssetID, Outcome: SkippedLocal}

	case strings.HasPrefix(face.AssetID, constants.FontAssetIDPrefix):
		assetIDNum := strings.TrimPrefix(face.AssetID, constants.FontAssetIDPrefix)
		identity := constants.FontAssetIdentityPrefix + assetIDNum

		if actx.History.IsProcessed(identity, constants.KindFont) {
			actx.Stats.Inc("already_processed")
			return FaceResult{Identity: identity, Outcome: AlreadyProcessed}
		}

		payload, err := p.Resolver.Resolve(ctx, assetIDNum)
		if err != nil {
			actx.Stats.Inc("download_failures")
			return FaceResult{Identity: identity, Outcome: Errored, Err: err}
		}

		sum := md5.Sum(payload)
		contentHash := hex.EncodeToString(sum[:])
		if actx.History.IsContentProcessed(contentHash, constants.KindFont) {
			actx.History.Add(identity, constants.KindFont)
			actx.Stats.Inc("duplicate_files")
			return FaceResult{Identity: identity, Outcome: Duplicate}
		}

		style := FontStyle(face.Name)
		destDir := familyDir
		if style != "" {
			destDir = filepath.Join(familyDir, style)
		}
		if err := os.MkdirAll(destDir, constants.DirPermissions); err != nil {
			actx.Stats.Inc("error_files")
			return FaceResult{Identity: identity, Outcome: Errored, Err: err}
		}

		destPath := filepath.Join(destDir, fmt.Sprintf("%s-%s.ttf", family, face.Name))
		if _, err := os.Stat(destPath); err == nil {
			// Idempotent replay: file already on disk from a prior run.
			actx.History.Add(identity, constants.KindFont)
			actx.History.AddContent(contentHash, constants.KindFont)
			actx.Stats.Inc("fonts_downloaded")
			return FaceResult{Identity: identity, Outcome: AlreadyProcessed}
		}

		if err := os.WriteFile(destPath, payload, constants.FilePermissions); err != nil {
			actx.Stats.Inc("error_files")
			return FaceResult{Identity: identity, Outcome: Errored, Err: err}
		}

		actx.History.Add(identity, constants.KindFont)
		actx.History.AddContent(contentHash, constants.KindFont)
		actx.Stats.Inc("fonts_downloaded")
		return FaceResult{Identity: identity, Outcome: Processed}

	default:
		actx.Stats.Inc("ignored_files")
		return FaceResult{Identity: face.AssetID, Outcome: IgnoredOutcome}
	}
}
