package generation

import (
	"strings"

	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/imagetools"
)

type ImageSize string

const (
	Size1K ImageSize = "1K"
	Size2K ImageSize = "2K"
	Size4K ImageSize = "4K"
)

// Premium sizes need a paid key.
func (s ImageSize) Premium() bool { return s == Size2K || s == Size4K }

const (
	Aspect1x1  = "1:1"
	Aspect16x9 = "16:9"
	Aspect9x16 = "9:16"
	Aspect4x3  = "4:3"

	Res720p  = "720p"
	Res1080p = "1080p"
)

// MaxVideoReferences is the most reference images one video request may carry.
const MaxVideoReferences = 3

// Request is one of ImageRequest, EditRequest or VideoRequest.
type Request interface {
	Kind() creations.MediaKind
	Validate() error
	isRequest()
}

// Image is raw image bytes plus their MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageFromDataURI decodes a stored asset or history image.
func ImageFromDataURI(uri string) (Image, error) {
	mime, data, err := imagetools.DecodeDataURI(uri)
	if err != nil {
		return Image{}, apierr.New(apierr.KindInvalidRequest, "reference image is not a data URI", err)
	}
	return Image{Data: data, MIMEType: mime}, nil
}

func (i Image) DataURI() string { return imagetools.EncodeDataURI(i.MIMEType, i.Data) }

type ImageRequest struct {
	Prompt      string
	Size        ImageSize
	AspectRatio string
	Tags        []string
}

func (ImageRequest) Kind() creations.MediaKind { return creations.MediaImage }
func (ImageRequest) isRequest()                {}

func (r ImageRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return apierr.Newf(apierr.KindInvalidRequest, "prompt is required")
	}
	switch r.Size {
	case Size1K, Size2K, Size4K:
	default:
		return apierr.Newf(apierr.KindInvalidRequest, "unsupported image size %q", r.Size)
	}
	switch r.AspectRatio {
	case Aspect1x1, Aspect16x9, Aspect9x16, Aspect4x3:
	default:
		return apierr.Newf(apierr.KindInvalidRequest, "unsupported aspect ratio %q", r.AspectRatio)
	}
	return nil
}

type EditRequest struct {
	Prompt   string
	Image    []byte
	MIMEType string
}

func (EditRequest) Kind() creations.MediaKind { return creations.MediaImage }
func (EditRequest) isRequest()                {}

func (r EditRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return apierr.Newf(apierr.KindInvalidRequest, "edit instruction is required")
	}
	if len(r.Image) == 0 {
		return apierr.Newf(apierr.KindInvalidRequest, "source image is required")
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.MIMEType)), "image/") {
		return apierr.Newf(apierr.KindInvalidRequest, "unsupported source MIME type %q", r.MIMEType)
	}
	return nil
}

type VideoRequest struct {
	Prompt      string
	Images      []Image
	AspectRatio string
	Resolution  string
}

func (VideoRequest) Kind() creations.MediaKind { return creations.MediaVideo }
func (VideoRequest) isRequest()                {}

func (r VideoRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return apierr.Newf(apierr.KindInvalidRequest, "prompt is required")
	}
	if len(r.Images) > MaxVideoReferences {
		return apierr.Newf(apierr.KindInvalidRequest, "at most %d reference images are allowed, got %d", MaxVideoReferences, len(r.Images))
	}
	for i, img := range r.Images {
		if len(img.Data) == 0 {
			return apierr.Newf(apierr.KindInvalidRequest, "reference image %d is empty", i+1)
		}
	}
	switch r.AspectRatio {
	case Aspect16x9, Aspect9x16:
	default:
		return apierr.Newf(apierr.KindInvalidRequest, "unsupported video aspect ratio %q", r.AspectRatio)
	}
	switch r.Resolution {
	case Res720p, Res1080p:
	default:
		return apierr.Newf(apierr.KindInvalidRequest, "unsupported video resolution %q", r.Resolution)
	}
	return nil
}
