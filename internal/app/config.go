package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/platform/envutil"
	"github.com/yungbote/creator-studio/internal/platform/gcp"
	"github.com/yungbote/creator-studio/internal/platform/gemini"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/platform/media"
)

const configFileName = "studio.yaml"

type GenerationConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// PollTimeout 0 observes video jobs without a bound.
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type Config struct {
	DataDir     string `yaml:"data_dir"`
	DBPath      string `yaml:"db_path"`
	SessionPath string `yaml:"session_path"`
	Environment string `yaml:"environment"`

	PremiumRequiresSelection bool   `yaml:"premium_requires_selection"`
	Interactive              bool   `yaml:"interactive"`
	FederatedAudience        string `yaml:"federated_audience"`
	ThumbnailSize            int    `yaml:"thumbnail_size"`

	Generation GenerationConfig `yaml:"generation"`
	Gemini     gemini.Config    `yaml:"gemini"`
	Media      media.Config     `yaml:"media"`

	// APIKey comes from the environment only; it is never read from or written to disk.
	APIKey     string `yaml:"-"`
	ConfigPath string `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Environment:   "local",
		Interactive:   true,
		ThumbnailSize: 256,
		Generation: GenerationConfig{
			PollInterval: generation.DefaultPollInterval,
			PollTimeout:  generation.DefaultPollTimeout,
		},
		Gemini: gemini.Config{
			RatePerSecond: 2,
			Burst:         4,
			HTTPTimeout:   5 * time.Minute,
			MaxRetries:    2,
		},
		Media: media.Config{
			Mode:         media.ModeTransient,
			TransientTTL: 6 * time.Hour,
		},
	}
}

// LoadConfig layers defaults, the YAML file and environment variables, in that
// order. configPath and dataDir come from command-line flags and win over the
// environment when set.
func LoadConfig(log *logger.Logger, configPath, dataDir string) (Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = firstNonEmpty(dataDir, envutil.String("STUDIO_DATA_DIR", ""), defaultDataDir())
	cfg.ConfigPath = firstNonEmpty(configPath, envutil.String("STUDIO_CONFIG_PATH", ""), filepath.Join(cfg.DataDir, configFileName))

	if err := readConfigFile(cfg.ConfigPath, &cfg); err != nil {
		return Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	applyEnv(&cfg)
	if err := applyBucketEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "studio.db")
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = filepath.Join(cfg.DataDir, "session.yaml")
	}
	if cfg.Media.LocalDir == "" {
		cfg.Media.LocalDir = filepath.Join(cfg.DataDir, "media")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if log != nil {
		log.Info("Config loaded",
			"config_path", cfg.ConfigPath,
			"data_dir", cfg.DataDir,
			"media_mode", cfg.Media.Mode,
			"env_key_set", cfg.APIKey != "",
			"premium_requires_selection", cfg.PremiumRequiresSelection,
		)
	}
	return cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIKey = envutil.First("GEMINI_API_KEY", "API_KEY")
	cfg.Environment = envutil.String("STUDIO_ENV", cfg.Environment)
	cfg.DBPath = envutil.String("STUDIO_DB_PATH", cfg.DBPath)
	cfg.SessionPath = envutil.String("STUDIO_SESSION_PATH", cfg.SessionPath)
	cfg.PremiumRequiresSelection = envutil.Bool("STUDIO_PREMIUM_REQUIRES_SELECTION", cfg.PremiumRequiresSelection)
	cfg.Interactive = envutil.Bool("STUDIO_INTERACTIVE", cfg.Interactive)
	cfg.FederatedAudience = envutil.String("STUDIO_FEDERATED_AUDIENCE", cfg.FederatedAudience)
	cfg.ThumbnailSize = envutil.Int("STUDIO_THUMBNAIL_SIZE", cfg.ThumbnailSize)

	cfg.Generation.PollInterval = envutil.Duration("STUDIO_POLL_INTERVAL", cfg.Generation.PollInterval)
	cfg.Generation.PollTimeout = envutil.Duration("STUDIO_POLL_TIMEOUT", cfg.Generation.PollTimeout)

	cfg.Gemini = gemini.ConfigFromEnv(cfg.Gemini)

	cfg.Media.Mode = media.Mode(strings.ToLower(envutil.String("STUDIO_MEDIA_MODE", string(cfg.Media.Mode))))
	cfg.Media.LocalDir = envutil.String("STUDIO_MEDIA_DIR", cfg.Media.LocalDir)
	cfg.Media.TransientTTL = envutil.Duration("STUDIO_MEDIA_TTL", cfg.Media.TransientTTL)
}

func applyBucketEnv(cfg *Config) error {
	if cfg.Media.Mode != media.ModeGCS {
		return nil
	}
	bucket, err := gcp.BucketConfigFromEnv(cfg.Media.Bucket)
	if err != nil {
		return fmt.Errorf("media bucket: %w", err)
	}
	cfg.Media.Bucket = bucket
	return nil
}

func (c Config) Validate() error {
	switch c.Media.Mode {
	case media.ModeTransient, media.ModeLocal, media.ModeGCS:
	default:
		return fmt.Errorf("invalid media mode %q (allowed: transient, local, gcs)", c.Media.Mode)
	}
	if c.Generation.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Generation.PollInterval)
	}
	if c.Generation.PollTimeout < 0 {
		return fmt.Errorf("poll timeout must not be negative, got %s", c.Generation.PollTimeout)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir is empty")
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "creator-studio")
	}
	return ".creator-studio"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
