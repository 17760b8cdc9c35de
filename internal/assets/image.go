package assets

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rbxcache/internal/constants"
	"rbxcache/internal/identify"
)

// imageExtensions maps the image Kind variants to their output extension.
var imageExtensions = map[identify.Kind]string{
	identify.ImagePNG:        "png",
	identify.ImageJPEG:       "jpg",
	identify.ImageGIF:        "gif",
	identify.ImageWebPSafe:   "webp",
	identify.ImageWebPAvatar: "webp",
	identify.KtxTexture:      "ktx",
}

// imageFamilies names the family-of-format bucket per Kind, used when
// ClassificationConfig.Image is "family" rather than "size".
var imageFamilies = map[identify.Kind]string{
	identify.ImagePNG:        "PNG",
	identify.ImageJPEG:       "JPEG",
	identify.ImageGIF:        "GIF",
	identify.ImageWebPSafe:   "WebP",
	identify.ImageWebPAvatar: "WebP",
	identify.KtxTexture:      "KTX",
}

// ImageProcessor implements the image branch of C7: raster images are
// renamed with their format extension and sorted into either a
// family-of-format or a size bucket.
type ImageProcessor struct{}

// ImageIdentity mirrors AudioIdentity's legacy path+size+mtime scheme,
// reused across the size-classified kinds.
func ImageIdentity(sourcePath string, size int64, modTime time.Time) string {
	return fmt.Sprintf("%s_%d_%d", sourcePath, size, modTime.UnixNano())
}

// Consume writes body to the output tree under the category/bucket implied
// by kind, returning the terminal Outcome. webp_avatar bodies are dropped
// (IgnoredOutcome) whenever ctx.BlockAvatarImages is set, regardless of
// whether the identifier already filtered them upstream.
func (p *ImageProcessor) Consume(ctx *Context, kind identify.Kind, identity, sourcePath string, body []byte) (Outcome, error) {
	if kind == identify.ImageWebPAvatar && ctx.BlockAvatarImages {
		ctx.Stats.Inc("ignored_files")
		return IgnoredOutcome, nil
	}

	ext, ok := imageExtensions[kind]
	if !ok {
		ctx.Stats.Inc("error_files")
		return Errored, fmt.Errorf("assets: %v is not an image kind", kind)
	}

	if ctx.History.IsProcessed(identity, constants.KindImage) {
		ctx.Stats.Inc("already_processed")
		return AlreadyProcessed, nil
	}

	contentHash := hex.EncodeToString(md5Sum(body))
	if dup := ctx.HashCache.Insert(contentHash); dup {
		ctx.Stats.Inc("duplicate_files")
		return Duplicate, nil
	}

	bucket := SizeBucket(len(body))
	if ctx.ClassificationMethod == constants.ClassifyByFamily {
		bucket = imageFamilies[kind]
	}

	destDir := filepath.Join(ctx.OutputDir, bucket)
	if err := os.MkdirAll(destDir, constants.DirPermissions); err != nil {
		ctx.Stats.Inc("error_files")
		return Errored, err
	}

	base := filepath.Base(sourcePath)
	base = base[:len(base)-len(filepath.Ext(base))]
	if base == "" || base == "." {
		base = contentHash[:8]
	}
	finalName := fmt.Sprintf("%s_%s_%s.%s",
		base, time.Now().Format("20060102_150405"), randSuffix(), ext)
	destPath := filepath.Join(destDir, finalName)

	if err := os.WriteFile(destPath, body, constants.FilePermissions); err != nil {
		ctx.Stats.Inc("error_files")
		return Errored, err
	}

	ctx.History.Add(identity, constants.KindImage)
	ctx.Stats.Inc("processed_files")
	return Processed, nil
}
