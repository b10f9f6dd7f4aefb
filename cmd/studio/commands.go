package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	types "github.com/yungbote/creator-studio/internal/domain"
	"github.com/yungbote/creator-studio/internal/generation"
	"github.com/yungbote/creator-studio/internal/platform/apierr"
	"github.com/yungbote/creator-studio/internal/platform/imagetools"
	"github.com/yungbote/creator-studio/internal/studio"
	"github.com/yungbote/creator-studio/internal/workflow"
)

func cmdSignIn(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: signin demo | signin federated -token JWT")
	}
	var (
		u   *types.User
		err error
	)
	switch args[0] {
	case "demo":
		u, err = c.app.Studio.SignInDemo(ctx)
	case "federated":
		fs := c.flags("signin federated")
		token := fs.String("token", os.Getenv("STUDIO_ID_TOKEN"), "identity token (default $STUDIO_ID_TOKEN)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		u, err = c.app.Studio.SignInFederated(ctx, *token)
	default:
		return fmt.Errorf("unknown sign-in method %q", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s (%s)\n", u.Name, u.ID)
	return nil
}

func cmdSignOut(ctx context.Context, c *cli, args []string) error {
	if err := c.app.Studio.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "signed out")
	return nil
}

func cmdWhoAmI(ctx context.Context, c *cli, args []string) error {
	u := c.app.Studio.CurrentUser()
	if u == nil {
		fmt.Fprintln(c.out, "not signed in")
		return nil
	}
	fmt.Fprintf(c.out, "%s (%s) via %s\n", u.Name, u.ID, u.Provider)
	fmt.Fprintf(c.out, "credential: %v\n", c.app.Studio.HasCredential(ctx))
	return nil
}

func cmdKey(ctx context.Context, c *cli, args []string) error {
	ok, err := c.app.Studio.RequestCredential(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no key selected")
	}
	fmt.Fprintln(c.out, "key selected")
	return nil
}

func cmdImage(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("image")
	prompt := fs.String("prompt", "", "what to draw")
	size := fs.String("size", string(generation.Size1K), "1K, 2K or 4K")
	aspect := fs.String("aspect", generation.Aspect1x1, "aspect ratio")
	out := fs.String("o", "", "also write the image to this file")
	var tags stringList
	fs.Var(&tags, "tag", "tag to attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := c.app.Studio.SubmitImageRequest(ctx, generation.ImageRequest{
		Prompt:      *prompt,
		Size:        generation.ImageSize(strings.ToUpper(*size)),
		AspectRatio: *aspect,
		Tags:        tags,
	})
	if err != nil {
		return err
	}
	return c.keep(ctx, res, *out)
}

func cmdEdit(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("edit")
	prompt := fs.String("prompt", "", "edit instruction")
	in := fs.String("in", "", "source image file")
	out := fs.String("o", "", "also write the edited image to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, mime, err := readImage(*in)
	if err != nil {
		return err
	}
	res, err := c.app.Studio.SubmitEditRequest(ctx, generation.EditRequest{Prompt: *prompt, Image: data, MIMEType: mime})
	if err != nil {
		return err
	}
	return c.keep(ctx, res, *out)
}

func cmdVideo(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("video")
	prompt := fs.String("prompt", "", "what happens in the video")
	aspect := fs.String("aspect", generation.Aspect16x9, "16:9 or 9:16")
	res := fs.String("res", generation.Res720p, "720p or 1080p")
	out := fs.String("o", "", "also write the video to this file")
	var images, assets, tags stringList
	fs.Var(&images, "image", "reference image file (repeatable)")
	fs.Var(&assets, "asset", "saved asset id to use as a reference (repeatable)")
	fs.Var(&tags, "tag", "tag; pulls in the newest image carrying it (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	draft, err := c.draft(ctx, *prompt, *aspect, *res, images, assets, tags)
	if err != nil {
		return err
	}
	job, err := c.app.Studio.StartVideoRequest(ctx, draft.Request())
	if err != nil {
		return err
	}
	result, err := c.follow(ctx, job)
	if err != nil {
		return err
	}
	result.Tags = draft.Tags
	return c.keep(ctx, result, *out)
}

// draft assembles references from files, saved assets and tags, in that order.
func (c *cli) draft(ctx context.Context, prompt, aspect, res string, images, assets, tags []string) (*workflow.Draft, error) {
	d := &workflow.Draft{Prompt: prompt, AspectRatio: aspect, Resolution: res}
	for _, path := range images {
		data, mime, err := readImage(path)
		if err != nil {
			return nil, err
		}
		d.References = append(d.References, workflow.Reference{Image: generation.Image{Data: data, MIMEType: mime}})
	}
	if len(assets) > 0 {
		saved := c.app.Studio.ListAssets(ctx)
		for _, id := range assets {
			a := findAsset(saved, id)
			if a == nil {
				return nil, apierr.Newf(apierr.KindNotFound, "asset %s not found", id)
			}
			img, err := generation.ImageFromDataURI(a.Content)
			if err != nil {
				return nil, err
			}
			d.References = append(d.References, workflow.Reference{Image: img})
		}
	}
	for _, tag := range tags {
		outcome := c.app.Studio.ApplySuggestedTag(ctx, d, tag)
		switch {
		case outcome.Err != nil:
			fmt.Fprintf(c.err, "tag %q: image %s could not be used as a reference: %v\n", tag, outcome.Match.ID, outcome.Err)
		case outcome.CapacityWarning:
			fmt.Fprintf(c.err, "tag %q: reference limit reached, image %s not added\n", tag, outcome.Match.ID)
		case outcome.ReferenceAdded:
			fmt.Fprintf(c.err, "tag %q: added image %s as a reference\n", tag, outcome.Match.ID)
		}
	}
	return d, nil
}

func findAsset(list []*types.ReferenceAsset, id string) *types.ReferenceAsset {
	for _, a := range list {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// follow prints job progress until the job ends.
func (c *cli) follow(ctx context.Context, job *generation.VideoJob) (*generation.Result, error) {
	fmt.Fprintf(c.err, "video job %s (%s)\n", job.ID, job.Plan.Model)
	for u := range job.Progress() {
		if u.Stage == generation.StagePolling {
			fmt.Fprintf(c.err, "\r%s: check %d", strings.ToLower(string(u.Stage)), u.Poll)
			continue
		}
		fmt.Fprintf(c.err, "\n%s %s", strings.ToLower(string(u.Stage)), u.Message)
	}
	fmt.Fprintln(c.err)
	return job.Wait(ctx)
}

// keep saves res to history and optionally writes its bytes to path.
func (c *cli) keep(ctx context.Context, res *generation.Result, path string) error {
	item := studio.HistoryItemFrom(res, time.Now())
	if _, err := c.app.Studio.SaveHistoryItem(ctx, item); err != nil {
		fmt.Fprintf(c.err, "%s\n", describe(err))
	} else {
		fmt.Fprintf(c.out, "saved %s %s\n", strings.ToLower(string(item.Kind)), item.ID)
	}
	if path == "" {
		return nil
	}
	return c.writeMedia(ctx, res.URL, path)
}

func (c *cli) writeMedia(ctx context.Context, url, path string) error {
	var data []byte
	if imagetools.IsDataURI(url) {
		_, raw, err := imagetools.DecodeDataURI(url)
		if err != nil {
			return err
		}
		data = raw
	} else {
		raw, _, err := c.app.Studio.OpenMedia(ctx, url)
		if err != nil {
			return err
		}
		data = raw
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func cmdEnhance(ctx context.Context, c *cli, args []string) error {
	draft := strings.Join(args, " ")
	out, err := c.app.Studio.EnhancePrompt(ctx, draft)
	if err != nil {
		fmt.Fprintln(c.err, describe(err))
	}
	fmt.Fprintln(c.out, out)
	return nil
}

func cmdMerge(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("merge")
	prompt := fs.String("prompt", "", "what happens in the video")
	frame := fs.String("frame", "merged-frame.png", "where to write the composed frame for review")
	yes := fs.Bool("yes", false, "approve the first frame without asking")
	out := fs.String("o", "", "also write the video to this file")
	var images stringList
	fs.Var(&images, "image", "reference image file (repeatable, at least two)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := c.draft(ctx, *prompt, generation.Aspect16x9, generation.Res1080p, images, nil, nil)
	if err != nil {
		return err
	}
	merge, err := c.app.Studio.MergeReferences(ctx, d.Request())
	if err != nil {
		return err
	}
	for {
		if err := c.writeMedia(ctx, merge.Frame().URL, *frame); err != nil {
			merge.Discard()
			return err
		}
		if *yes {
			break
		}
		fmt.Fprint(c.err, "approve (a), regenerate (r) or discard (d)? ")
		line, _ := c.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "approve":
		case "r", "regenerate":
			if err := merge.Regenerate(ctx); err != nil {
				fmt.Fprintln(c.err, describe(err))
			}
			continue
		default:
			merge.Discard()
			fmt.Fprintln(c.out, "discarded")
			return nil
		}
		break
	}
	job, err := merge.Approve(ctx)
	if err != nil {
		return err
	}
	result, err := c.follow(ctx, job)
	if err != nil {
		return err
	}
	return c.keep(ctx, result, *out)
}

func cmdHistory(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		for _, h := range c.app.Studio.ListHistory(ctx) {
			meta := h.Meta()
			fmt.Fprintf(c.out, "%s  %-5s  %s  %s  [%s]  %q\n",
				h.ID, h.Kind, time.UnixMilli(h.CreatedAt).Format(time.DateTime), meta.Model, strings.Join(h.Tags, ", "), h.Prompt)
		}
		return nil
	case "tag":
		if len(args) < 2 {
			return fmt.Errorf("usage: history tag ID TAG...")
		}
		tags := append([]string{}, args[2:]...)
		_, err := c.app.Studio.UpdateHistoryItem(ctx, args[1], types.HistoryPatch{Tags: &tags})
		return err
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: history delete ID")
		}
		if !c.confirm("Delete " + args[1] + "?") {
			return nil
		}
		_, err := c.app.Studio.DeleteHistoryItem(ctx, args[1])
		return err
	case "clear":
		fs := c.flags("history clear")
		yes := fs.Bool("yes", false, "skip the confirmation")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if !*yes && !c.confirm("Delete all history?") {
			return nil
		}
		return c.app.Studio.ClearHistory(ctx)
	default:
		return fmt.Errorf("unknown history command %q", args[0])
	}
}

func cmdAssets(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		for _, a := range c.app.Studio.ListAssets(ctx) {
			fmt.Fprintf(c.out, "%s  %s  %s\n", a.ID, time.UnixMilli(a.CreatedAt).Format(time.DateTime), a.Name)
		}
		return nil
	case "add":
		fs := c.flags("assets add")
		name := fs.String("name", "", "display name")
		file := fs.String("file", "", "image file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		data, mime, err := readImage(*file)
		if err != nil {
			return err
		}
		list, err := c.app.Studio.SaveAsset(ctx, *name, generation.Image{Data: data, MIMEType: mime})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "saved asset %s\n", list[0].ID)
		return nil
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: assets delete ID")
		}
		_, err := c.app.Studio.DeleteAsset(ctx, args[1])
		return err
	default:
		return fmt.Errorf("unknown assets command %q", args[0])
	}
}

func cmdExport(ctx context.Context, c *cli, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: export ID FILE")
	}
	for _, h := range c.app.Studio.ListHistory(ctx) {
		if h.ID == args[0] {
			return c.writeMedia(ctx, h.URL, args[1])
		}
	}
	return apierr.Newf(apierr.KindNotFound, "history item %s not found", args[0])
}

func cmdTags(ctx context.Context, c *cli, args []string) error {
	for _, t := range c.app.Studio.SuggestTags(ctx) {
		fmt.Fprintln(c.out, t)
	}
	return nil
}
