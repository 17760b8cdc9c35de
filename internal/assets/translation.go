package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"rbxcache/internal/constants"
)

// translationDoc is the on-wire shape of a translation cache entry.
type translationDoc struct {
	Locale  string                 `json:"locale"`
	Entries map[string]interface{} `json:"entries"`
}

// TranslationProcessor implements the translation branch of C7.
type TranslationProcessor struct{}

// Consume parses body as a translation document, infers its content type,
// and writes it to the output tree keyed by content hash. The content hash
// itself serves as the history identity: two cache entries carrying byte-
// identical translation JSON are the same extraction regardless of source
// path.
func (p *TranslationProcessor) Consume(ctx *Context, body []byte) (Outcome, error) {
	var doc translationDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		ctx.Stats.Inc("error_files")
		return Errored, fmt.Errorf("assets: parsing translation body: %w", err)
	}

	sum := sha256.Sum256(body)
	contentHash := hex.EncodeToString(sum[:])

	if ctx.History.IsProcessed(contentHash, constants.KindTranslation) {
		ctx.Stats.Inc("already_processed")
		return AlreadyProcessed, nil
	}
	if dup := ctx.HashCache.Insert(contentHash); dup {
		ctx.Stats.Inc("duplicate_files")
		return Duplicate, nil
	}

	keys := make([]string, 0, len(doc.Entries))
	for k := range doc.Entries {
		keys = append(keys, k)
	}
	contentType := TranslationContentType(keys)

	partition := contentType
	if ctx.ClassificationMethod == constants.ClassifyByLocale {
		partition = doc.Locale
	}
	if partition == "" {
		partition = constants.ContentTypeGeneral
	}

	destDir := filepath.Join(ctx.OutputDir, partition)
	if err := os.MkdirAll(destDir, constants.DirPermissions); err != nil {
		ctx.Stats.Inc("error_files")
		return Errored, err
	}

	locale := doc.Locale
	if locale == "" {
		locale = "unknown"
	}
	finalName := fmt.Sprintf("%s_%s_%s.json", locale, contentType, contentHash[:8])
	destPath := filepath.Join(destDir, finalName)

	if err := os.WriteFile(destPath, body, constants.FilePermissions); err != nil {
		ctx.Stats.Inc("error_files")
		return Errored, err
	}

	ctx.History.Add(contentHash, constants.KindTranslation)
	ctx.Stats.Inc("processed_files")
	return Processed, nil
}
