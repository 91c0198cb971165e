package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"storyreel/config"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Seconds formats a duration for ffmpeg arguments
func Seconds(v float64) string {
	return strconv.FormatFloat(math.Max(v, 0), 'f', 3, 64)
}

// Fade applies a symmetric fade in and fade out of length fade to a clip of
// the given duration.
func Fade(s *ffmpeg.Stream, duration, fade float64, kwargs ...ffmpeg.KwArgs) *ffmpeg.Stream {
	if fade <= 0 {
		return s
	}
	in := ffmpeg.KwArgs{"t": "in", "st": "0", "d": Seconds(fade)}
	out := ffmpeg.KwArgs{"t": "out", "st": Seconds(duration - fade), "d": Seconds(fade)}
	for _, kw := range kwargs {
		for k, v := range kw {
			in[k] = v
			out[k] = v
		}
	}
	return s.Filter("fade", ffmpeg.Args{}, in).Filter("fade", ffmpeg.Args{}, out)
}

// AudioFade is Fade for audio streams
func AudioFade(s *ffmpeg.Stream, duration, fade float64) *ffmpeg.Stream {
	if fade <= 0 {
		return s
	}
	fade = math.Min(fade, duration/2)
	return s.
		Filter("afade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "in", "st": "0", "d": Seconds(fade)}).
		Filter("afade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "out", "st": Seconds(duration - fade), "d": Seconds(fade)})
}

// Trim cuts a video stream to duration from its start
func Trim(s *ffmpeg.Stream, duration float64) *ffmpeg.Stream {
	return s.
		Filter("trim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": Seconds(duration)}).
		Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})
}

// Hold extends a video shorter than duration by cloning its last frame, then trims it
func Hold(s *ffmpeg.Stream, have, duration float64) *ffmpeg.Stream {
	if have < duration {
		s = s.Filter("tpad", ffmpeg.Args{}, ffmpeg.KwArgs{"stop_mode": "clone", "stop_duration": Seconds(duration - have)})
	}
	return Trim(s, duration)
}

// Resize scales to exactly w x h
func Resize(s *ffmpeg.Stream, w, h int) *ffmpeg.Stream {
	return s.
		Filter("scale", ffmpeg.Args{strconv.Itoa(w), strconv.Itoa(h)}).
		Filter("setsar", ffmpeg.Args{"1"})
}

// Fit scales into w x h keeping aspect ratio and pads the rest, content centered
func Fit(s *ffmpeg.Stream, w, h int) *ffmpeg.Stream {
	return s.
		Filter("scale", ffmpeg.Args{strconv.Itoa(w), strconv.Itoa(h)}, ffmpeg.KwArgs{"force_original_aspect_ratio": "decrease"}).
		Filter("pad", ffmpeg.Args{strconv.Itoa(w), strconv.Itoa(h), "(ow-iw)/2", "(oh-ih)/2"}, ffmpeg.KwArgs{"color": "black"}).
		Filter("setsar", ffmpeg.Args{"1"})
}

// Normalize forces the frame rate and pixel format every concat input must share
func Normalize(s *ffmpeg.Stream) *ffmpeg.Stream {
	return s.
		Filter("fps", ffmpeg.Args{strconv.Itoa(config.FrameRate)}).
		Filter("format", ffmpeg.Args{config.PixelFormat})
}

// NormalizeAudio resamples to the shared rate and layout
func NormalizeAudio(s *ffmpeg.Stream) *ffmpeg.Stream {
	return s.Filter("aformat", ffmpeg.Args{}, ffmpeg.KwArgs{
		"sample_rates":    strconv.Itoa(config.AudioSampleRate),
		"channel_layouts": "stereo",
	})
}

// ColorSource is a solid color clip of the given size and duration
func ColorSource(color string, w, h int, duration float64) *ffmpeg.Stream {
	src := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", color, w, h, config.FrameRate)
	return ffmpeg.Input(src, ffmpeg.KwArgs{"f": "lavfi", "t": Seconds(duration)})
}

// Silence is a silent stereo track of the given duration
func Silence(duration float64) *ffmpeg.Stream {
	src := fmt.Sprintf("anullsrc=r=%d:cl=stereo", config.AudioSampleRate)
	return ffmpeg.Input(src, ffmpeg.KwArgs{"f": "lavfi", "t": Seconds(duration)})
}

// StillImage loops an image for duration seconds
func StillImage(path string, duration float64) *ffmpeg.Stream {
	return ffmpeg.Input(path, ffmpeg.KwArgs{
		"loop":      "1",
		"framerate": strconv.Itoa(config.FrameRate),
		"t":         Seconds(duration),
	})
}

// LoopedVideo repeats a video until duration is reached. Audio is not used.
func LoopedVideo(path string, duration float64) *ffmpeg.Stream {
	return ffmpeg.Input(path, ffmpeg.KwArgs{"stream_loop": "-1", "t": Seconds(duration)}).Video()
}

// SplitVideoAndAudio separates a clip into dialogues/<uuid>.mp3 and a silent
// images/<uuid>.mp4 beside it, then removes the source.
func SplitVideoAndAudio(ctx context.Context, runner Runner, videoPath string) (string, string, error) {
	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", videoPath, err)
	}
	folder := filepath.Dir(abs)
	audioOut := filepath.Join(folder, config.DialoguesDirName, uuid.NewString()+".mp3")
	videoOut := filepath.Join(folder, config.ImagesDirName, uuid.NewString()+".mp4")

	for _, dir := range []string{filepath.Dir(audioOut), filepath.Dir(videoOut)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	src := ffmpeg.Input(abs)
	if err := runner.Run(ctx, src.Audio().Output(audioOut, ffmpeg.KwArgs{"vn": ""}).OverWriteOutput()); err != nil {
		return "", "", fmt.Errorf("failed to extract audio: %w", err)
	}
	if err := runner.Run(ctx, ffmpeg.Input(abs).Video().Output(videoOut, ffmpeg.KwArgs{
		"an":  "",
		"c:v": config.VideoCodec,
	}).OverWriteOutput()); err != nil {
		return "", "", fmt.Errorf("failed to write silent video: %w", err)
	}

	if err := os.Remove(abs); err != nil {
		return "", "", fmt.Errorf("failed to remove source %s: %w", abs, err)
	}
	return audioOut, videoOut, nil
}

// TextOptions positions text drawn by AddText
type TextOptions struct {
	FontColor string
	FontSize  int
	X, Y      int
}

// DefaultTextOptions matches the drawtext defaults of the editor
func DefaultTextOptions() TextOptions {
	return TextOptions{FontColor: "blue", FontSize: 50, X: 500, Y: 500}
}

// AddText burns text into a video, writes "<name>.l.mp4" and removes the source
func AddText(ctx context.Context, runner Runner, prober Prober, videoPath, text string, opts TextOptions) (string, error) {
	out := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".l.mp4"

	in := ffmpeg.Input(videoPath)
	drawn := in.Video().Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
		"text":      text,
		"expansion": "none",
		"fontsize":  strconv.Itoa(opts.FontSize),
		"fontcolor": opts.FontColor,
		"x":         strconv.Itoa(opts.X),
		"y":         strconv.Itoa(opts.Y),
	})

	streams := []*ffmpeg.Stream{drawn}
	kwargs := ffmpeg.KwArgs{"c:v": config.VideoCodec}
	if info, err := prober.Probe(ctx, videoPath); err == nil && info.HasAudio {
		streams = append(streams, in.Audio())
		kwargs["c:a"] = "copy"
	}

	if err := runner.Run(ctx, ffmpeg.Output(streams, out, kwargs).OverWriteOutput()); err != nil {
		return "", fmt.Errorf("failed to draw text: %w", err)
	}
	if err := os.Remove(videoPath); err != nil {
		return "", fmt.Errorf("failed to remove source %s: %w", videoPath, err)
	}
	return out, nil
}
