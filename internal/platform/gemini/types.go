package gemini

import "context"

const (
	ModelImagePro  = "gemini-3-pro-image-preview"
	ModelImageEdit = "gemini-2.5-flash-image"
	ModelText      = "gemini-2.5-flash"
	ModelVideoFast = "veo-3.1-fast-generate-preview"
	ModelVideo     = "veo-3.1-generate-preview"
)

type InlineImage struct {
	Data     []byte
	MIMEType string
}

// ImageCall is a generateContent request expected to answer with an image part.
// Images are sent before the prompt text.
type ImageCall struct {
	Model       string
	Prompt      string
	Images      []InlineImage
	AspectRatio string
	ImageSize   string
}

// ImageResult holds the first inline image of the answer; Image is nil when the
// model answered with text only.
type ImageResult struct {
	Image *InlineImage
	Text  string
}

// VideoCall starts a long-running video generation. Frame conditions the first frame;
// References are asset reference images. The two are mutually exclusive.
type VideoCall struct {
	Model          string
	Prompt         string
	Frame          *InlineImage
	References     []InlineImage
	AspectRatio    string
	Resolution     string
	NumberOfVideos int
}

// Operation is a snapshot of a remote video job.
type Operation struct {
	Name          string
	Done          bool
	ErrorMessage  string
	VideoURI      string
	VideoBytes    []byte
	VideoMIMEType string
}

// Provider is the remote generative service. apiKey authorizes each call.
type Provider interface {
	GenerateImage(ctx context.Context, apiKey string, call ImageCall) (*ImageResult, error)
	GenerateText(ctx context.Context, apiKey string, model string, prompt string) (string, error)
	StartVideo(ctx context.Context, apiKey string, call VideoCall) (*Operation, error)
	PollVideo(ctx context.Context, apiKey string, op *Operation) (*Operation, error)
	Download(ctx context.Context, apiKey string, uri string) ([]byte, string, error)
}
