// Package config holds user-configurable defaults for the extraction
// engine: worker counts, classification defaults, retry budgets, and
// timeouts, loaded from and saved to a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"rbxcache/internal/constants"
	"rbxcache/internal/logger"
)

// WorkerConfig holds user-configurable worker-pool settings.
type WorkerConfig struct {
	NumWorkers    int    `yaml:"num_workers"`
	ParallelModel string `yaml:"parallel_model"`
	ProgressMaxHz int    `yaml:"progress_max_hz"`
}

// ClassificationConfig holds the default classification method per kind.
type ClassificationConfig struct {
	Audio       string `yaml:"audio"`
	Font        string `yaml:"font"`
	Image       string `yaml:"image"`
	Video       string `yaml:"video"`
	Translation string `yaml:"translation"`
}

// FontResolverConfig holds user-configurable font-list resolver settings.
type FontResolverConfig struct {
	MaxRetries      int `yaml:"max_retries"`
	RetryBaseWaitMs int `yaml:"retry_base_wait_ms"`
}

// VideoConfig holds user-configurable HLS assembler settings.
type VideoConfig struct {
	SegmentMaxRetries  int    `yaml:"segment_max_retries"`
	SegmentRetryWaitMs int    `yaml:"segment_retry_wait_ms"`
	TimestampRepair    bool   `yaml:"timestamp_repair"`
	AutoCleanup        bool   `yaml:"auto_cleanup"`
	QualityPreference  string `yaml:"quality_preference"` // "auto", "lowest", or a target height like "720"
}

// TimeoutConfig holds user-configurable I/O and external-tool timeouts.
type TimeoutConfig struct {
	NetworkGETSeconds int `yaml:"network_get_seconds"`
	ToolRepairSeconds int `yaml:"tool_repair_seconds"`
	ToolConcatSeconds int `yaml:"tool_concat_seconds"`
	DBOpenSeconds     int `yaml:"db_open_seconds"`
}

// Config holds all engine configuration.
type Config struct {
	CachePathOverride string               `yaml:"cache_path_override"`
	MediaToolPath     string               `yaml:"media_tool_path"`
	HistoryPath       string               `yaml:"history_path"`
	BlockAvatarImages bool                 `yaml:"block_avatar_images"`
	Worker            WorkerConfig         `yaml:"worker"`
	Classification    ClassificationConfig `yaml:"classification"`
	FontResolver      FontResolverConfig   `yaml:"font_resolver"`
	Video             VideoConfig          `yaml:"video"`
	Timeouts          TimeoutConfig        `yaml:"timeouts"`
}

// ApplyDefaults fills zero-valued fields with constant defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Worker.NumWorkers == 0 {
		cfg.Worker.NumWorkers = runtime.NumCPU()
	}
	if cfg.Worker.ParallelModel == "" {
		cfg.Worker.ParallelModel = constants.ParallelThreaded
	}
	if cfg.Worker.ProgressMaxHz == 0 {
		cfg.Worker.ProgressMaxHz = constants.ProgressSinkMaxHz
	}

	if cfg.Classification.Audio == "" {
		cfg.Classification.Audio = constants.ClassifyByDuration
	}
	if cfg.Classification.Font == "" {
		cfg.Classification.Font = constants.ClassifyByFamily
	}
	if cfg.Classification.Image == "" {
		cfg.Classification.Image = constants.ClassifyBySize
	}
	if cfg.Classification.Video == "" {
		cfg.Classification.Video = constants.ClassifyByResolution
	}
	if cfg.Classification.Translation == "" {
		cfg.Classification.Translation = constants.ClassifyByContentType
	}

	if cfg.FontResolver.MaxRetries == 0 {
		cfg.FontResolver.MaxRetries = constants.FontAssetMaxRetries
	}
	if cfg.FontResolver.RetryBaseWaitMs == 0 {
		cfg.FontResolver.RetryBaseWaitMs = int(constants.FontAssetRetryBaseWait.Milliseconds())
	}

	if cfg.Video.SegmentMaxRetries == 0 {
		cfg.Video.SegmentMaxRetries = constants.SegmentMaxRetries
	}
	if cfg.Video.SegmentRetryWaitMs == 0 {
		cfg.Video.SegmentRetryWaitMs = int(constants.SegmentRetryWait.Milliseconds())
	}
	if cfg.Video.QualityPreference == "" {
		cfg.Video.QualityPreference = constants.VideoQualityAuto
	}
	// AutoCleanup and TimestampRepair default true; YAML false is
	// indistinguishable from unset, so these two are set true only on a
	// freshly created config (see LoadConfig) rather than here.

	if cfg.Timeouts.NetworkGETSeconds == 0 {
		cfg.Timeouts.NetworkGETSeconds = int(constants.NetworkGETTimeout.Seconds())
	}
	if cfg.Timeouts.ToolRepairSeconds == 0 {
		cfg.Timeouts.ToolRepairSeconds = int(constants.ToolRepairTimeout.Seconds())
	}
	if cfg.Timeouts.ToolConcatSeconds == 0 {
		cfg.Timeouts.ToolConcatSeconds = int(constants.ToolConcatTimeout.Seconds())
	}
	if cfg.Timeouts.DBOpenSeconds == 0 {
		cfg.Timeouts.DBOpenSeconds = int(constants.DBOpenTimeout.Seconds())
	}

	if cfg.HistoryPath == "" {
		if p, err := defaultHistoryPath(); err == nil {
			cfg.HistoryPath = p
		}
	}
}

func defaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.HistoryDir, constants.HistoryFile), nil
}

var validParallelModels = map[string]bool{
	constants.ParallelThreaded:    true,
	constants.ParallelProcessPool: true,
}

// validate checks that all configurable values are within acceptable ranges.
func (cfg *Config) validate() error {
	var errs []string

	if cfg.Worker.NumWorkers < 1 {
		errs = append(errs, "worker.num_workers must be >= 1")
	}
	if !validParallelModels[cfg.Worker.ParallelModel] {
		errs = append(errs, fmt.Sprintf("worker.parallel_model must be one of %q or %q", constants.ParallelThreaded, constants.ParallelProcessPool))
	}
	if cfg.Worker.ProgressMaxHz < 1 {
		errs = append(errs, "worker.progress_max_hz must be >= 1")
	}
	if cfg.FontResolver.MaxRetries < 1 {
		errs = append(errs, "font_resolver.max_retries must be >= 1")
	}
	if cfg.Video.SegmentMaxRetries < 1 {
		errs = append(errs, "video.segment_max_retries must be >= 1")
	}
	if cfg.Timeouts.NetworkGETSeconds < 1 {
		errs = append(errs, "timeouts.network_get_seconds must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogEffectiveValues logs all effective configuration values at startup.
func (cfg *Config) LogEffectiveValues(log *logger.Logger) {
	log.Info("config: worker.num_workers=%d", cfg.Worker.NumWorkers)
	log.Info("config: worker.parallel_model=%s", cfg.Worker.ParallelModel)
	log.Info("config: classification.audio=%s font=%s image=%s video=%s translation=%s",
		cfg.Classification.Audio, cfg.Classification.Font, cfg.Classification.Image,
		cfg.Classification.Video, cfg.Classification.Translation)
	log.Info("config: font_resolver.max_retries=%d", cfg.FontResolver.MaxRetries)
	log.Info("config: video.segment_max_retries=%d auto_cleanup=%v", cfg.Video.SegmentMaxRetries, cfg.Video.AutoCleanup)
	log.Info("config: history_path=%s", cfg.HistoryPath)
}

func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, constants.ConfigDir)
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), constants.ConfigFile)
}

func EnsureConfigDir() error {
	return os.MkdirAll(GetConfigDir(), constants.DirPermissions)
}

// LoadConfig reads the YAML config file, creating it with defaults on
// first run.
func LoadConfig() (*Config, error) {
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	configPath := GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &Config{
			Video: VideoConfig{TimestampRepair: true, AutoCleanup: true},
		}
		cfg.ApplyDefaults()

		if err := SaveConfig(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig marshals cfg to YAML and writes it to the standard path.
func SaveConfig(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(GetConfigPath(), data, constants.FilePermissions)
}
