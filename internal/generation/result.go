package generation

import "github.com/yungbote/creator-studio/internal/domain/creations"

// Result is a finished generation. URL is a data URI for images and a media store
// handle for videos.
type Result struct {
	Kind        creations.MediaKind
	URL         string
	MIMEType    string
	Prompt      string
	Model       string
	AspectRatio string
	Resolution  string
	Size        ImageSize
	Tags        []string
}
