// Package identify classifies a cache entry's decoded body into an
// AssetKind by matching an ordered table of prefix and substring rules
// against the first bytes of the payload.
package identify

import (
	"bytes"
	"strings"

	"rbxcache/internal/constants"
)

// Kind is the closed tag for a recognized (or unrecognized) asset body.
type Kind int

const (
	RbxmModel Kind = iota
	Mesh
	Translation
	FontList
	ImagePNG
	ImageJPEG
	ImageGIF
	ImageWebPSafe
	ImageWebPAvatar
	AudioOGG
	AudioMP3
	KtxTexture
	HlsPlaylist
	Ignored
	Unknown
)

func (k Kind) String() string {
	switch k {
	case RbxmModel:
		return "RbxmModel"
	case Mesh:
		return "Mesh"
	case Translation:
		return "Translation"
	case FontList:
		return "FontList"
	case ImagePNG:
		return "Image/png"
	case ImageJPEG:
		return "Image/jpeg"
	case ImageGIF:
		return "Image/gif"
	case ImageWebPSafe:
		return "Image/webp_safe"
	case ImageWebPAvatar:
		return "Image/webp_avatar"
	case AudioOGG:
		return "Audio/ogg"
	case AudioMP3:
		return "Audio/mp3"
	case KtxTexture:
		return "KtxTexture"
	case HlsPlaylist:
		return "HlsPlaylist"
	case Ignored:
		return "Ignored"
	default:
		return "Unknown"
	}
}

// Category returns the output category bucket for kinds that write files.
// Kinds that never produce direct output (Ignored, Unknown) return "".
func (k Kind) Category() string {
	switch k {
	case RbxmModel:
		return constants.CategoryRBXM
	case ImagePNG, ImageJPEG, ImageGIF, ImageWebPSafe, ImageWebPAvatar, KtxTexture:
		return constants.CategoryTextures
	case AudioOGG, AudioMP3:
		return constants.CategorySounds
	case HlsPlaylist:
		return constants.CategoryVideos
	case FontList:
		return constants.CategoryFonts
	case Translation:
		return constants.CategoryTranslations
	default:
		return ""
	}
}

// Result is the outcome of identification: a Kind plus, for Ignored, the
// human-readable reason a rule matched.
type Result struct {
	Kind   Kind
	Reason string // only set when Kind == Ignored
}

// Options controls identification behavior that depends on caller policy
// rather than payload content.
type Options struct {
	BlockAvatarImages bool
}

// DefaultOptions matches the spec's default of blocking avatar WEBP images.
func DefaultOptions() Options {
	return Options{BlockAvatarImages: true}
}

// zstdMagic is the on-disk little-endian encoding of 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
var matroskaMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// Identify classifies body by running the ordered rule table. First match
// wins; order must not change without revisiting every rule after it.
func Identify(body []byte, opts Options) Result {
	n := len(body)
	if n > constants.IdentifyPrefixWindow {
		n = constants.IdentifyPrefixWindow
	}
	prefix := body[:n]
	text := string(bytes.ToValidUTF8(prefix, []byte{0xef, 0xbf, 0xbd}))

	switch {
	case strings.Contains(text, "<roblox!"):
		return Result{Kind: RbxmModel}
	case strings.Contains(text, "<roblox xml"):
		return Result{Kind: Ignored, Reason: "unsupported XML"}
	case strings.HasPrefix(text, "version") && !strings.HasPrefix(text, `"version`):
		return Result{Kind: Mesh}
	case strings.HasPrefix(text, `{"translations`):
		return Result{Kind: Ignored, Reason: "translation list JSON"}
	case strings.Contains(text, `{"locale":"`):
		return Result{Kind: Translation}
	case strings.Contains(text, "PNG\r\n"):
		return Result{Kind: ImagePNG}
	case strings.HasPrefix(text, "GIF87a") || strings.HasPrefix(text, "GIF89a"):
		return Result{Kind: ImageGIF}
	case strings.Contains(text, "JFIF") || strings.Contains(text, "Exif"):
		return Result{Kind: ImageJPEG}
	case strings.HasPrefix(text, "RIFF") && strings.Contains(text, "WEBP"):
		if opts.BlockAvatarImages {
			return Result{Kind: ImageWebPAvatar}
		}
		return Result{Kind: ImageWebPSafe}
	case strings.HasPrefix(text, "OggS"):
		return Result{Kind: AudioOGG}
	case strings.HasPrefix(text, "ID3") || isMP3FrameSync(prefix):
		return Result{Kind: AudioMP3}
	case strings.Contains(text, "KTX 11"):
		return Result{Kind: KtxTexture}
	case strings.HasPrefix(text, "#EXTM3U"):
		return Result{Kind: HlsPlaylist}
	case strings.Contains(text, `"name": "`):
		return Result{Kind: FontList}
	case strings.Contains(text, `{"applicationSettings`):
		return Result{Kind: Ignored, Reason: "flags JSON"}
	case strings.Contains(text, `{"version`):
		return Result{Kind: Ignored, Reason: "client version JSON"}
	case strings.Contains(text, "GDEF") || strings.Contains(text, "GPOS") || strings.Contains(text, "GSUB"):
		return Result{Kind: Ignored, Reason: "bare font"}
	case bytes.HasPrefix(prefix, zstdMagic):
		return Result{Kind: Ignored, Reason: "zstd"}
	case bytes.HasPrefix(prefix, matroskaMagic):
		return Result{Kind: Ignored, Reason: "matroska fragment"}
	default:
		return Result{Kind: Unknown}
	}
}

// isMP3FrameSync checks the raw byte pattern for an MP3 frame sync: first
// byte 0xFF, second byte's top 3 bits all set.
func isMP3FrameSync(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0] == 0xFF && b[1]&0xE0 == 0xE0
}
