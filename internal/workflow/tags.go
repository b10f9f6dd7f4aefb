package workflow

import (
	"strings"

	"github.com/yungbote/creator-studio/internal/domain/creations"
	"github.com/yungbote/creator-studio/internal/generation"
)

// Reference is an image selected into a video draft. HistoryID is empty for
// uploads and saved assets.
type Reference struct {
	HistoryID string
	Image     generation.Image
}

// Draft is the video form being filled in.
type Draft struct {
	Prompt      string
	Tags        []string
	References  []Reference
	AspectRatio string
	Resolution  string
}

func (d *Draft) Request() generation.VideoRequest {
	req := generation.VideoRequest{Prompt: d.Prompt, AspectRatio: d.AspectRatio, Resolution: d.Resolution}
	for _, r := range d.References {
		req.Images = append(req.Images, r.Image)
	}
	return req
}

func (d *Draft) hasReference(historyID string) bool {
	for _, r := range d.References {
		if r.HistoryID != "" && r.HistoryID == historyID {
			return true
		}
	}
	return false
}

type TagOutcome struct {
	TagAdded        bool
	ReferenceAdded  bool
	CapacityWarning bool
	// Match is the history image carrying the tag, if any.
	Match *creations.HistoryItem
	// Err is set when Match exists but its image could not be used as a reference.
	Err error
}

// SuggestTags lists distinct tags across history, keeping the casing and order in
// which they first appear.
func SuggestTags(history []*creations.HistoryItem) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range history {
		if h == nil {
			continue
		}
		for _, t := range h.Tags {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

// ApplySuggestedTag adds tag to the draft and pulls in the newest history image
// carrying it as a reference while there is room. At capacity the tag is still
// added and the references stay as they are.
func ApplySuggestedTag(d *Draft, history []*creations.HistoryItem, tag string) TagOutcome {
	var out TagOutcome
	tag = strings.TrimSpace(tag)
	if d == nil || tag == "" {
		return out
	}
	if !creations.ContainsTag(d.Tags, tag) {
		d.Tags = append(d.Tags, tag)
		out.TagAdded = true
	}
	match := creations.LatestWithTag(history, creations.MediaImage, tag)
	if match == nil {
		return out
	}
	out.Match = match
	if d.hasReference(match.ID) {
		return out
	}
	if len(d.References) >= generation.MaxVideoReferences {
		out.CapacityWarning = true
		return out
	}
	img, err := generation.ImageFromDataURI(match.URL)
	if err != nil {
		out.Err = err
		return out
	}
	d.References = append(d.References, Reference{HistoryID: match.ID, Image: img})
	out.ReferenceAdded = true
	return out
}
