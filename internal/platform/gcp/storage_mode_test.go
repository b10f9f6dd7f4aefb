package gcp

import (
	"errors"
	"testing"
)

func TestBucketConfigFromEnvDefaultGCS(t *testing.T) {
	t.Setenv("STUDIO_GCS_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	t.Setenv("STUDIO_MEDIA_BUCKET", "studio-media")
	t.Setenv("STUDIO_MEDIA_PUBLIC_BASE_URL", "")

	cfg, err := BucketConfigFromEnv(BucketConfig{})
	if err != nil {
		t.Fatalf("BucketConfigFromEnv: %v", err)
	}
	if cfg.Mode != StorageModeGCS {
		t.Fatalf("mode: want=%q got=%q", StorageModeGCS, cfg.Mode)
	}
	if cfg.EmulatorFallback {
		t.Fatalf("emulator fallback: want=false got=true")
	}
}

func TestBucketConfigFromEnvEmulatorFallback(t *testing.T) {
	t.Setenv("STUDIO_GCS_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")
	t.Setenv("STUDIO_MEDIA_BUCKET", "studio-media")
	t.Setenv("STUDIO_MEDIA_PUBLIC_BASE_URL", "")

	cfg, err := BucketConfigFromEnv(BucketConfig{})
	if err != nil {
		t.Fatalf("BucketConfigFromEnv: %v", err)
	}
	if cfg.Mode != StorageModeGCSEmulator || !cfg.EmulatorFallback {
		t.Fatalf("mode: want emulator via fallback got=%q fallback=%v", cfg.Mode, cfg.EmulatorFallback)
	}
	if cfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: want trimmed got=%q", cfg.EmulatorHost)
	}
}

func TestBucketConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name   string
		mode   string
		host   string
		bucket string
		code   ConfigErrorCode
	}{
		{name: "invalid mode", mode: "s3", bucket: "b", code: ConfigErrorInvalidMode},
		{name: "missing bucket", mode: "gcs", code: ConfigErrorMissingBucket},
		{name: "missing emulator host", mode: "gcs_emulator", bucket: "b", code: ConfigErrorMissingEmulatorHost},
		{name: "relative emulator host", mode: "gcs_emulator", host: "fake-gcs:4443", bucket: "b", code: ConfigErrorInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("STUDIO_GCS_MODE", tc.mode)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.host)
			t.Setenv("STUDIO_MEDIA_BUCKET", tc.bucket)
			t.Setenv("STUDIO_MEDIA_PUBLIC_BASE_URL", "")

			_, err := BucketConfigFromEnv(BucketConfig{})
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("want *ConfigError got=%v", err)
			}
			if cerr.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, cerr.Code)
			}
		})
	}
}
