package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/creator-studio/internal/platform/envutil"
)

// bucketCredentials picks the service account for the media bucket. The value may
// be inline JSON or a key file path; nothing set falls back to application default
// credentials.
func bucketCredentials() []option.ClientOption {
	creds := envutil.First("STUDIO_GCS_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS_JSON", "GOOGLE_APPLICATION_CREDENTIALS")
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
