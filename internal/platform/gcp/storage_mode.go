package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/creator-studio/internal/platform/envutil"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

func (m StorageMode) Supported() bool {
	return m == StorageModeGCS || m == StorageModeGCSEmulator
}

// BucketConfig selects the media bucket and how to reach it.
type BucketConfig struct {
	Mode         StorageMode `yaml:"mode"`
	Bucket       string      `yaml:"bucket"`
	Prefix       string      `yaml:"prefix"`
	EmulatorHost string      `yaml:"emulator_host"`
	// PublicBaseURL overrides the host used in PublicURL (CDN or emulator port mapping).
	PublicBaseURL string `yaml:"public_base_url"`
	// EmulatorFallback is set when the mode was inferred from STORAGE_EMULATOR_HOST.
	EmulatorFallback bool `yaml:"-"`
}

func (cfg BucketConfig) IsEmulator() bool { return cfg.Mode == StorageModeGCSEmulator }

type ConfigErrorCode string

const (
	ConfigErrorInvalidMode         ConfigErrorCode = "invalid_mode"
	ConfigErrorMissingBucket       ConfigErrorCode = "missing_bucket"
	ConfigErrorMissingEmulatorHost ConfigErrorCode = "missing_emulator_host"
	ConfigErrorInvalidURL          ConfigErrorCode = "invalid_url"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid media bucket config"
	}
	switch e.Code {
	case ConfigErrorInvalidMode:
		return fmt.Sprintf("invalid STUDIO_GCS_MODE=%q (allowed: %q, %q)", e.Value, StorageModeGCS, StorageModeGCSEmulator)
	case ConfigErrorMissingBucket:
		return "gcs media storage requires STUDIO_MEDIA_BUCKET"
	case ConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("STUDIO_GCS_MODE=%q requires STORAGE_EMULATOR_HOST", StorageModeGCSEmulator)
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid URL %q; expected absolute URL like http://fake-gcs:4443", e.Value)
	default:
		return "invalid media bucket config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// BucketConfigFromEnv overlays STUDIO_MEDIA_BUCKET, STUDIO_MEDIA_PREFIX, STUDIO_GCS_MODE,
// STORAGE_EMULATOR_HOST and STUDIO_MEDIA_PUBLIC_BASE_URL on base, then validates.
func BucketConfigFromEnv(base BucketConfig) (BucketConfig, error) {
	cfg := BucketConfig{
		Bucket:        envutil.String("STUDIO_MEDIA_BUCKET", base.Bucket),
		Prefix:        strings.Trim(envutil.String("STUDIO_MEDIA_PREFIX", base.Prefix), "/"),
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", base.EmulatorHost), "/"),
		PublicBaseURL: strings.TrimRight(envutil.String("STUDIO_MEDIA_PUBLIC_BASE_URL", base.PublicBaseURL), "/"),
	}
	raw := envutil.String("STUDIO_GCS_MODE", string(base.Mode))
	switch mode := StorageMode(strings.ToLower(raw)); mode {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
			cfg.EmulatorFallback = true
		}
	case StorageModeGCS, StorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, &ConfigError{Code: ConfigErrorInvalidMode, Value: raw}
	}
	return cfg, ValidateBucketConfig(cfg)
}

func ValidateBucketConfig(cfg BucketConfig) error {
	if !cfg.Mode.Supported() {
		return &ConfigError{Code: ConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
	if cfg.Bucket == "" {
		return &ConfigError{Code: ConfigErrorMissingBucket}
	}
	if cfg.PublicBaseURL != "" {
		if err := checkAbsoluteURL(cfg.PublicBaseURL); err != nil {
			return err
		}
	}
	if !cfg.IsEmulator() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &ConfigError{Code: ConfigErrorMissingEmulatorHost}
	}
	return checkAbsoluteURL(cfg.EmulatorHost)
}

func checkAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: raw, Cause: err}
	}
	return nil
}
