// Package constants centralizes the engine's fixed values: paths, sizes,
// timeouts, and format magic numbers. Keeping these in one place mirrors
// how the teacher's repo separates magic values from logic.
package constants

import "time"

// Application
const (
	AppName        = "rbxcache"
	AppDisplayName = "RBXCache"
)

// Config & history paths
const (
	InternalDir        = ".internal"
	ConfigDir          = ".config/rbxcache"
	ConfigFile         = "config.yaml"
	HistoryDir         = ".roblox_audio_extractor"
	HistoryFile        = "extracted_history.json"
	HistoryBackupFile  = "extracted_history.json.bak"
	DefaultLogLevel    = "INFO"
	LogsDir            = "logs"
	LogsDirDebug       = "debug"
	LogsDirInfo        = "info"
	LogsDirWarn        = "warn"
	LogsDirError       = "error"
	LogFileExtension   = ".log"
	LogTimestampFormat = "2006-01-02 15:04:05"
)

// Roblox cache well-known locations (relative to environment roots; see
// internal/config/paths.go for resolution).
const (
	StandardDBName       = "rbx-storage.db"
	StandardStorageDir   = "rbx-storage"
	UWPPackageDir         = "ROBLOXCORPORATION.ROBLOX_55nm5eh3cm0pr"
	UWPLocalStateHTTPPath = "LocalState/http"
	TempFallbackSubpath   = "Roblox/http"
)

// RBXH frame layout (spec §4.1). All multi-byte integers are little-endian.
var RBXHMagic = []byte("RBXH")

const (
	RBXHMagicSize       = 4
	RBXHHeaderSizeField = 4 // discarded
	RBXHLinkLenSize     = 4
	RBXHReservedByte    = 1
	RBXHStatusSize      = 4
	RBXHHeadersLenSize  = 4
	RBXHDigestSize      = 4
	RBXHBodyLenSize     = 4
	RBXHTrailerSkip     = 8 // reserved + digest skipped after headers_len bytes
	NonSuccessThreshold = 300
)

// Content identifier (spec §4.2)
const (
	IdentifyPrefixWindow = 48
)

// Namespace prefix for content-hash cache keys. No package references it:
// internal/hashcache stores hash strings as given, without a prefix.
const ContentHashCacheNamespace = "rbxcache-seen:"

// Output tree (spec §6)
const (
	RandSuffixLen = 4
)

// Category directory names
const (
	CategoryRBXM       = "RBXM"
	CategoryTextures   = "Textures"
	CategorySounds     = "Sounds"
	CategoryVideos     = "Videos"
	CategoryFonts      = "Fonts"
	CategoryTranslations = "Translations"
)

// Audio duration buckets (spec §3)
const (
	AudioBucketUltraShort = "ultra_short_0-5s"
	AudioBucketShort      = "short_5-15s"
	AudioBucketMedium     = "medium_15-60s"
	AudioBucketLong       = "long_60-300s"
	AudioBucketUltraLong  = "ultra_long_300s+"
)

// Size buckets shared by audio/font/image classification-by-size.
const (
	SizeBucketUltraSmall = "ultra_small_0-50KB"
	SizeBucketSmall      = "small_50-200KB"
	SizeBucketMedium     = "medium_200KB-1MB"
	SizeBucketLarge      = "large_1MB-5MB"
	SizeBucketUltraLarge = "ultra_large_5MB+"
)

const (
	KB = 1024
	MB = 1024 * KB
)

// Translation content types (spec §3, §4.5)
const (
	ContentTypeUI          = "UI"
	ContentTypeErrors       = "Errors"
	ContentTypeGameContent  = "GameContent"
	ContentTypeGeneral      = "General"
	ContentTypeMajorityFrac = 0.30
)

// History bucket keys (spec §3)
const (
	KindAudio       = "audio"
	KindFont        = "font"
	KindImage       = "image"
	KindTexture     = "texture"
	KindModel       = "model"
	KindTranslation = "translation"
	KindVideo       = "video"
	KindOther       = "other"
)

// Parallelism models (spec §4.4)
const (
	ParallelThreaded    = "threaded"
	ParallelProcessPool = "process-pool"
)

// Classification methods (spec §3, §4.4)
const (
	ClassifyByDuration   = "duration"
	ClassifyBySize       = "size"
	ClassifyByFamily     = "family"
	ClassifyByStyle      = "style"
	ClassifyByNone       = "none"
	ClassifyByResolution = "resolution"
	ClassifyByLocale     = "locale"
	ClassifyByContentType = "content_type"
)

// Timeouts (spec §5)
const (
	NetworkGETTimeout    = 30 * time.Second
	ToolRepairTimeout    = 60 * time.Second
	ToolConcatTimeout    = 300 * time.Second
	DBOpenTimeout        = 10 * time.Second
	DBPreHealthTimeout   = 5 * time.Second
)

// Retry budgets (spec §4.5, §4.6)
const (
	FontAssetMaxRetries    = 3
	FontAssetRetryBaseWait = 1 * time.Second
	SegmentMaxRetries      = 3
	SegmentRetryWait       = 1 * time.Second
)

// Progress reporting (spec §4.4)
const ProgressSinkMaxHz = 10

// Video quality preference values (spec §4.5 "Video processor" step 2).
// Any other value is parsed as a target height in pixels.
const (
	VideoQualityAuto   = "auto"
	VideoQualityLowest = "lowest"
)

// Font asset endpoint (spec §6)
const (
	FontAssetDeliveryURLFmt = "https://assetdelivery.roblox.com/v1/asset?id=%s"
	FontAssetUserAgentFmt   = "%s/%s"
	FontAssetIDPrefix       = "rbxassetid://"
	FontAssetLocalPrefix    = "rbxasset://"
	FontAssetIdentityPrefix = "font_asset_"
)

// External media tool contract (spec §6)
const (
	ProbeSubcommand     = "probe"
	ToolArgShowDuration = "-show_entries"
)

// File permissions, matching the teacher's convention.
const (
	DirPermissions  = 0o755
	FilePermissions = 0o644
)

// Filename sanitization (kept from the teacher's sanitize package).
const (
	MaxOriginNameLength    = 200
	MaxExtensionLength     = 16
	FilenameReplacementChar = "_"
)
