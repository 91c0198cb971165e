package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Info is what the composer needs to know about a media file
type Info struct {
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// Prober inspects media files
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFProbe probes files with ffprobe through ffmpeg-go
type FFProbe struct {
	Timeout time.Duration
}

// Probe runs ffprobe and parses its JSON report. The context deadline wins
// over Timeout when it is sooner.
func (p FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	timeout := p.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout == 0 || left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

type probeReport struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseProbe(raw string) (Info, error) {
	var report probeReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var info Info
	if report.Format.Duration != "" {
		if d, err := strconv.ParseFloat(report.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	for _, s := range report.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.Width, info.Height = s.Width, s.Height
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
		if info.Duration == 0 && s.Duration != "" {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
				info.Duration = d
			}
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return Info{}, fmt.Errorf("no audio or video streams found")
	}
	return info, nil
}
