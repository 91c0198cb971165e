package compose

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"storyreel/media"
	"storyreel/types"
	"storyreel/workdir"
)

// AvatarRenderer provides the lip-synced avatar video for a working directory
type AvatarRenderer interface {
	Render(ctx context.Context, image, audio string, layout workdir.Layout) (string, error)
}

// Composer renders assemblies to their working directory's output_video.mp4
type Composer struct {
	planner *Planner
	runner  media.Runner
	avatar  AvatarRenderer
	timeout time.Duration
}

// NewComposer creates a Composer. avatar may be nil when no assembly uses one.
func NewComposer(prober media.Prober, runner media.Runner, avatar AvatarRenderer, renderTimeout time.Duration) *Composer {
	return &Composer{
		planner: NewPlanner(prober),
		runner:  runner,
		avatar:  avatar,
		timeout: renderTimeout,
	}
}

// Compose plans and renders a. The output path is returned only when the
// final render succeeded; a failed render never leaves a file at that path.
func (c *Composer) Compose(ctx context.Context, a *types.Assembly, layout workdir.Layout) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	plan, err := c.planner.Plan(ctx, a, layout)
	if err != nil {
		return "", fmt.Errorf("failed to plan timeline: %w", err)
	}
	log.Printf("🎬 Composing %s: %d scenes, %.2fs main, %.2fs total", a.ID, len(plan.Segments), plan.Duration(), plan.Total())

	if err := c.runner.Run(ctx, BuildNarration(plan, layout.MixedAudio())); err != nil {
		return "", fmt.Errorf("failed to render narration track: %w", err)
	}

	avatarPath, err := c.renderAvatar(ctx, a, layout)
	if err != nil {
		return "", err
	}

	if plan.Subtitles {
		cleanup, err := writeCaptions(plan, layout)
		defer cleanup()
		if err != nil {
			return "", err
		}
	}

	out := layout.OutputVideo()
	if err := c.runner.Run(ctx, BuildFinal(plan, layout.MixedAudio(), avatarPath, out)); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("failed to render video: %w", err)
	}
	if !workdir.Exists(out) {
		return "", fmt.Errorf("render finished without writing %s", out)
	}

	log.Printf("✅ Rendered %s", out)
	return out, nil
}

// renderAvatar returns "" when the overlay is skipped. Only a required avatar
// makes a failed render fatal.
func (c *Composer) renderAvatar(ctx context.Context, a *types.Assembly, layout workdir.Layout) (string, error) {
	if !a.HasAvatar() {
		return "", nil
	}
	if c.avatar == nil {
		if a.AvatarRequired {
			return "", fmt.Errorf("avatar requested but no avatar renderer is configured")
		}
		log.Printf("⚠️  no avatar renderer configured, skipping avatar for %s", a.ID)
		return "", nil
	}

	path, err := c.avatar.Render(ctx, a.AvatarImage, layout.MixedAudio(), layout)
	if err != nil {
		if a.AvatarRequired {
			return "", fmt.Errorf("avatar render failed: %w", err)
		}
		log.Printf("⚠️  avatar render failed for %s, continuing without it: %v", a.ID, err)
		return "", nil
	}
	return path, nil
}
