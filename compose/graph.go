package compose

import (
	"fmt"
	"strconv"

	"storyreel/config"
	"storyreel/media"
	"storyreel/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// BuildNarration concatenates every scene's narration, padding included, into out
func BuildNarration(t *Timeline, out string) *ffmpeg.Stream {
	var parts []*ffmpeg.Stream
	for _, seg := range t.Segments {
		voice := ffmpeg.Input(seg.AudioPath).Audio().
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": media.Seconds(seg.AudioDuration)}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
		parts = append(parts, media.NormalizeAudio(voice))
		if seg.Padding > 0 {
			parts = append(parts, media.NormalizeAudio(media.Silence(seg.Padding)))
		}
	}
	track := ffmpeg.Concat(parts, ffmpeg.KwArgs{"v": 0, "a": 1})
	return ffmpeg.Output([]*ffmpeg.Stream{track}, out, ffmpeg.KwArgs{
		"c:a": "pcm_s16le",
		"ar":  strconv.Itoa(config.AudioSampleRate),
	}).OverWriteOutput()
}

// BuildFinal composes the whole video into out. narration is the track written
// by BuildNarration; avatar is empty when no avatar is overlaid.
func BuildFinal(t *Timeline, narration, avatar, out string) *ffmpeg.Stream {
	d := t.Duration()

	video := foreground(t)
	if t.Background != nil {
		video = composite(t.Background, video, d)
	}
	if avatar != "" {
		video = overlayAvatar(video, avatar, d)
	}
	if t.Subtitles {
		video = overlaySubtitles(t, video, d)
	}
	video = media.Normalize(video)

	audio := media.NormalizeAudio(ffmpeg.Input(narration).Audio())
	if t.Music != nil {
		audio = mixMusic(audio, t.Music, d)
	}

	if t.Intro != nil || t.Outro != nil {
		videos := []*ffmpeg.Stream{}
		audios := []*ffmpeg.Stream{}
		if t.Intro != nil {
			v, a := bookend(t.Intro)
			videos, audios = append(videos, v), append(audios, a)
		}
		videos, audios = append(videos, video), append(audios, audio)
		if t.Outro != nil {
			v, a := bookend(t.Outro)
			videos, audios = append(videos, v), append(audios, a)
		}
		video = ffmpeg.Concat(videos, ffmpeg.KwArgs{"v": 1, "a": 0})
		audio = ffmpeg.Concat(audios, ffmpeg.KwArgs{"v": 0, "a": 1})
	}

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, out, ffmpeg.KwArgs{
		"c:v":      config.VideoCodec,
		"pix_fmt":  config.PixelFormat,
		"r":        strconv.Itoa(config.FrameRate),
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"movflags": "+faststart",
	}).OverWriteOutput()
}

// foreground concatenates every clip in scene order
func foreground(t *Timeline) *ffmpeg.Stream {
	var clips []*ffmpeg.Stream
	for _, seg := range t.Segments {
		for _, c := range seg.Clips {
			clips = append(clips, clipStream(c, t))
		}
	}
	return ffmpeg.Concat(clips, ffmpeg.KwArgs{"v": 1, "a": 0})
}

func clipStream(c Clip, t *Timeline) *ffmpeg.Stream {
	canvas := t.Canvas
	if c.Placeholder() {
		// Cut from one timeline-long source: ffmpeg-go merges identical nodes,
		// so equal-length sources would collide.
		src := media.ColorSource(config.PlaceholderColor, canvas.Width, canvas.Height, t.Duration())
		return media.Normalize(cut(src, c.Start, c.Duration))
	}

	var s *ffmpeg.Stream
	switch c.Kind {
	case types.AssetVideo:
		s = media.Hold(ffmpeg.Input(c.Path).Video(), c.SourceDuration, c.Duration)
	default:
		s = media.StillImage(c.Path, c.Duration)
	}

	// Inside a background frame visuals fill the canvas; otherwise they keep
	// their aspect ratio centered in the output frame.
	if t.Background != nil {
		s = media.Resize(s, canvas.Width, canvas.Height)
	} else {
		s = media.Fit(s, canvas.Width, canvas.Height)
	}
	return media.Fade(media.Normalize(s), c.Duration, c.Fade)
}

// cut takes duration seconds starting at start and rebases timestamps
func cut(s *ffmpeg.Stream, start, duration float64) *ffmpeg.Stream {
	return s.
		Filter("trim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": media.Seconds(start), "duration": media.Seconds(duration)}).
		Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})
}

// composite places the foreground inside the background frame and keys the
// background color out over it
func composite(bg *BackgroundLayer, fg *ffmpeg.Stream, d float64) *ffmpeg.Stream {
	base := media.ColorSource("black", config.FrameWidth, config.FrameHeight, d)
	placed := ffmpeg.Filter([]*ffmpeg.Stream{base, fg}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
		"x":          strconv.Itoa(bg.Left),
		"y":          strconv.Itoa(bg.Top),
		"eof_action": "pass",
	})

	var frame *ffmpeg.Stream
	if bg.Kind == types.AssetVideo {
		frame = media.LoopedVideo(bg.Path, d)
	} else {
		frame = media.StillImage(bg.Path, d)
	}
	keyed := frame.
		Filter("fps", ffmpeg.Args{strconv.Itoa(config.FrameRate)}).
		Filter("format", ffmpeg.Args{"rgba"}).
		Filter("colorkey", ffmpeg.Args{}, ffmpeg.KwArgs{
			"color":      fmt.Sprintf("0x%02X%02X%02X", bg.Key[0], bg.Key[1], bg.Key[2]),
			"similarity": strconv.FormatFloat(bg.Similarity, 'f', 4, 64),
			"blend":      strconv.FormatFloat(bg.Blend, 'f', 4, 64),
		})

	framed := ffmpeg.Filter([]*ffmpeg.Stream{placed, keyed}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
		"x":          "0",
		"y":          "0",
		"eof_action": "pass",
	})
	return media.Fade(media.Normalize(framed), d, config.BackgroundFade)
}

func overlayAvatar(video *ffmpeg.Stream, avatar string, d float64) *ffmpeg.Stream {
	scale := strconv.FormatFloat(config.AvatarScale, 'f', -1, 64)
	av := ffmpeg.Input(avatar).Video().
		Filter("scale", ffmpeg.Args{"iw*" + scale, "ih*" + scale}).
		Filter("format", ffmpeg.Args{"yuva420p"})
	av = media.Fade(av, d, config.AvatarFade, ffmpeg.KwArgs{"alpha": "1"})

	return ffmpeg.Filter([]*ffmpeg.Stream{video, av}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
		"x":          "W-w",
		"y":          "0",
		"eof_action": "pass",
	})
}

func overlaySubtitles(t *Timeline, video *ffmpeg.Stream, d float64) *ffmpeg.Stream {
	box := fmt.Sprintf("color=c=black@0.0:s=%dx%d:r=%d", config.SubtitleBoxWidth, config.SubtitleBoxHeight, config.FrameRate)
	var cards []*ffmpeg.Stream
	for _, seg := range t.Segments {
		src := ffmpeg.Input(box, ffmpeg.KwArgs{"f": "lavfi", "t": media.Seconds(d)})
		card := cut(src, seg.Start, seg.Duration()).Filter("format", ffmpeg.Args{"rgba"})
		if seg.CaptionFile != "" {
			card = card.Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
				"textfile":  seg.CaptionFile,
				"expansion": "none",
				"fontsize":  strconv.Itoa(config.SubtitleFontSize),
				"fontcolor": config.SubtitleColor,
				"x":         "(w-text_w)/2",
				"y":         "0",
			})
		}
		cards = append(cards, card)
	}
	track := ffmpeg.Concat(cards, ffmpeg.KwArgs{"v": 1, "a": 0})
	track = media.Fade(track, d, config.SubtitleFade, ffmpeg.KwArgs{"alpha": "1"})

	return ffmpeg.Filter([]*ffmpeg.Stream{video, track}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
		"x":          strconv.Itoa(config.SubtitleX),
		"y":          strconv.Itoa(config.SubtitleY),
		"eof_action": "pass",
	})
}

func mixMusic(narration *ffmpeg.Stream, music *AudioLayer, d float64) *ffmpeg.Stream {
	length := music.Duration
	if length > d {
		length = d
	}
	bed := ffmpeg.Input(music.Path).Audio().
		Filter("volume", ffmpeg.Args{strconv.FormatFloat(config.MusicVolume, 'f', -1, 64)}).
		Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": media.Seconds(length)}).
		Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
	bed = media.NormalizeAudio(media.AudioFade(bed, length, config.MusicFade))

	return ffmpeg.Filter([]*ffmpeg.Stream{narration, bed}, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
		"inputs":    "2",
		"duration":  "first",
		"normalize": "0",
	})
}

// bookend returns an intro or outro fitted to the output frame with an audio
// track of exactly its duration
func bookend(b *Bookend) (*ffmpeg.Stream, *ffmpeg.Stream) {
	video := media.Normalize(media.Fit(ffmpeg.Input(b.Path).Video(), config.FrameWidth, config.FrameHeight))

	var audio *ffmpeg.Stream
	if b.HasAudio {
		audio = ffmpeg.Input(b.Path).Audio().
			Filter("apad", ffmpeg.Args{}).
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": media.Seconds(b.Duration)})
	} else {
		audio = media.Silence(b.Duration)
	}
	return video, media.NormalizeAudio(audio)
}
