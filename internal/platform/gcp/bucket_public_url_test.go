package gcp

import "testing"

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  BucketConfig
		want string
	}{
		{
			name: "gcs default",
			cfg:  BucketConfig{Mode: StorageModeGCS, Bucket: "media"},
			want: "https://storage.googleapis.com/media/videos/a.mp4",
		},
		{
			name: "emulator",
			cfg:  BucketConfig{Mode: StorageModeGCSEmulator, Bucket: "media", EmulatorHost: "http://fake-gcs:4443"},
			want: "http://fake-gcs:4443/storage/v1/b/media/o/videos%2Fa.mp4?alt=media",
		},
		{
			name: "public base override",
			cfg:  BucketConfig{Mode: StorageModeGCS, Bucket: "media", PublicBaseURL: "https://cdn.example.com"},
			want: "https://cdn.example.com/media/videos/a.mp4",
		},
	}
	for _, tc := range cases {
		if got := publicURL(tc.cfg, "videos/a.mp4"); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestParseLocator(t *testing.T) {
	b := &mediaBucket{cfg: BucketConfig{Bucket: "media", Prefix: "studio"}}
	loc := b.Locator("/u1/v.mp4")
	if loc != "gs://media/studio/u1/v.mp4" {
		t.Fatalf("locator: got=%q", loc)
	}
	bucket, object, ok := ParseLocator(loc)
	if !ok || bucket != "media" || object != "studio/u1/v.mp4" {
		t.Fatalf("parse: got=%q %q %v", bucket, object, ok)
	}
	if _, _, ok := ParseLocator("blob:abc"); ok {
		t.Fatalf("parse blob: want ok=false")
	}
}

func TestContentTypeForKey(t *testing.T) {
	if got := ContentTypeForKey("a/b.MP4?x=1"); got != "video/mp4" {
		t.Fatalf("mp4: got=%q", got)
	}
	if got := ContentTypeForKey("noext"); got != "application/octet-stream" {
		t.Fatalf("noext: got=%q", got)
	}
}
