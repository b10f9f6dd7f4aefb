package generation

import "github.com/yungbote/creator-studio/internal/platform/gemini"

// VideoPlan is the provider call derived from a VideoRequest.
type VideoPlan struct {
	Model       string
	AspectRatio string
	Resolution  string
	// Frame conditions the first frame when exactly one image was given.
	Frame *Image
	// References carries 2..3 asset images.
	References []Image
}

// PlanVideo picks the model and settings for a request. Multi-reference generation
// only exists on the base model at 720p and 16:9, so those settings are forced.
func PlanVideo(req VideoRequest) VideoPlan {
	if len(req.Images) >= 2 {
		return VideoPlan{
			Model:       gemini.ModelVideo,
			AspectRatio: Aspect16x9,
			Resolution:  Res720p,
			References:  append([]Image(nil), req.Images...),
		}
	}
	p := VideoPlan{
		Model:       gemini.ModelVideoFast,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	}
	if len(req.Images) == 1 {
		img := req.Images[0]
		p.Frame = &img
	}
	return p
}

func (p VideoPlan) call(prompt string) gemini.VideoCall {
	c := gemini.VideoCall{
		Model:          p.Model,
		Prompt:         prompt,
		AspectRatio:    p.AspectRatio,
		Resolution:     p.Resolution,
		NumberOfVideos: 1,
	}
	if p.Frame != nil {
		c.Frame = &gemini.InlineImage{Data: p.Frame.Data, MIMEType: p.Frame.MIMEType}
	}
	for _, r := range p.References {
		c.References = append(c.References, gemini.InlineImage{Data: r.Data, MIMEType: r.MIMEType})
	}
	return c
}
