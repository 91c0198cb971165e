package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Runner executes a compiled ffmpeg graph
type Runner interface {
	Run(ctx context.Context, stream *ffmpeg.Stream) error
}

// FFmpegRunner runs graphs as a child process bound to the context, so a
// cancelled or timed-out render kills ffmpeg instead of leaking it.
type FFmpegRunner struct {
	Bin string
}

// Run executes the graph and returns ffmpeg's output tail on failure
func (r FFmpegRunner) Run(ctx context.Context, stream *ffmpeg.Stream) error {
	bin := r.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	out, err := runCommand(ctx, bin, stream.GetArgs()...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg aborted: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(out, 800))
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.String(), err
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
