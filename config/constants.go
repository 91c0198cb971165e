package config

import "time"

// Output Frame Constants
const (
	// FrameWidth is the width of every rendered assembly
	FrameWidth = 1920

	// FrameHeight is the height of every rendered assembly
	FrameHeight = 1080

	// FrameRate is the output frame rate
	FrameRate = 24

	// VideoCodec is the final render video codec
	VideoCodec = "libx264"

	// AvatarCodec is the codec the lip-synced avatar is transcoded to
	AvatarCodec = "h264"

	// AudioCodec is the final render audio codec
	AudioCodec = "aac"

	// AudioBitrate is the final render audio bitrate
	AudioBitrate = "192k"

	// AudioSampleRate is the sample rate every narration track is resampled to
	AudioSampleRate = 44100

	// PixelFormat keeps the render playable in common players
	PixelFormat = "yuv420p"
)

// Timeline Constants
const (
	// SilenceUnit is one unit of trailing silence in seconds; the last scene gets two
	SilenceUnit = 1.0

	// SilenceUnitsOnLastScene is how many silence units pad the final scene
	SilenceUnitsOnLastScene = 2

	// FadeRatio is the share of a clip's duration spent fading in (and again fading out)
	FadeRatio = 0.2

	// BackgroundImageScale is the size of foreground images relative to the background frame
	BackgroundImageScale = 0.65

	// PlaceholderColor fills scenes without a usable visual asset
	PlaceholderColor = "black"
)

// Overlay Constants
const (
	// MusicVolume attenuates background music under the narration
	MusicVolume = 0.07

	// MusicFade is the music fade in/out in seconds
	MusicFade = 4.0

	// BackgroundFade is the fade applied to the composited background frame
	BackgroundFade = 2.0

	// ChromaStiffness mirrors the mask hardness used when keying the background
	ChromaStiffness = 7

	// AvatarScale enlarges the avatar video before pinning it top-right
	AvatarScale = 1.5

	// AvatarFade is the avatar fade in/out in seconds
	AvatarFade = 2.0

	// SubtitleX and SubtitleY position the caption box
	SubtitleX = 60
	SubtitleY = 760

	// SubtitleFontSize is the caption font size
	SubtitleFontSize = 37

	// SubtitleColor is the caption font colour
	SubtitleColor = "blue"

	// SubtitleBoxWidth and SubtitleBoxHeight bound the caption area
	SubtitleBoxWidth  = 1600
	SubtitleBoxHeight = 500

	// SubtitleFade is the caption track fade in/out in seconds
	SubtitleFade = 1.0
)

// Acquisition Constants
const (
	// DefaultStyle is the image generation style when a request leaves it empty
	DefaultStyle = "vivid"

	// RegenerateStyle is the style used to regenerate a single scene image
	RegenerateStyle = "vivid"

	// ImagesPerScene is how many images each provider call asks for
	ImagesPerScene = 1

	// DownloadRetries bounds retries when fetching a found image
	DownloadRetries = 3

	// DownloadRetryDelay is the wait between download retries
	DownloadRetryDelay = 2 * time.Second
)

// Working Directory Constants
const (
	// ImagesDirName holds visual assets
	ImagesDirName = "images"

	// DialoguesDirName holds narration audio
	DialoguesDirName = "dialogues"

	// CaptionsDirName holds caption text files used during a render
	CaptionsDirName = "captions"

	// MixedAudioFile is the concatenated narration track
	MixedAudioFile = "output_audio.wav"

	// AvatarVideoFile is the cached avatar render
	AvatarVideoFile = "output_avatar.mp4"

	// OutputVideoFile is the final render
	OutputVideoFile = "output_video.mp4"
)

// YouTube Constants
const (
	// YouTubeCategoryID for Education
	YouTubeCategoryID = "27"

	// YouTubePrivacyStatus sets video visibility
	YouTubePrivacyStatus = "private"
)
