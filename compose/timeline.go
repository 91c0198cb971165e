// Package compose plans an assembly's timeline and renders it with ffmpeg.
//
// Planning probes every input once and fixes all durations up front; the
// graph builders in graph.go only translate the plan into filters.
package compose

import (
	"context"
	"fmt"
	"log"
	"math"

	"storyreel/config"
	"storyreel/media"
	"storyreel/types"
	"storyreel/workdir"
)

// Clip is one visual on the foreground track
type Clip struct {
	SceneIndex int
	Kind       types.AssetKind
	// Path is empty for placeholders
	Path     string
	Start    float64
	Duration float64
	Fade     float64
	// SourceDuration is the length of a video asset before trimming or holding
	SourceDuration float64
}

// Placeholder reports whether the clip is the fixed-color filler
func (c Clip) Placeholder() bool {
	return c.Path == ""
}

// Segment is one scene on the timeline
type Segment struct {
	SceneIndex    int
	AudioPath     string
	AudioDuration float64
	// Padding is trailing silence appended to the narration
	Padding float64
	Start   float64
	Clips   []Clip
	Caption string
	// CaptionFile is set once the caption text is written for rendering
	CaptionFile string
}

// Duration is the scene's share of the timeline, padding included
func (s Segment) Duration() float64 {
	return s.AudioDuration + s.Padding
}

// Size is a frame size in pixels
type Size struct {
	Width, Height int
}

// BackgroundLayer is the chroma-keyed frame drawn over the foreground
type BackgroundLayer struct {
	Path  string
	Kind  types.AssetKind
	Frame Size
	Key   [3]int
	// Similarity and Blend are colorkey parameters derived from the threshold
	Similarity float64
	Blend      float64
	Top, Left  int
}

// AudioLayer is an optional music bed
type AudioLayer struct {
	Path     string
	Duration float64
}

// Bookend is an intro or outro clip
type Bookend struct {
	Path     string
	Duration float64
	HasAudio bool
}

// Timeline is the full render plan for one assembly
type Timeline struct {
	Segments   []Segment
	Canvas     Size
	Background *BackgroundLayer
	Music      *AudioLayer
	Intro      *Bookend
	Outro      *Bookend
	Subtitles  bool
	Avatar     bool
}

// Duration is the composed main section: narration plus padding
func (t *Timeline) Duration() float64 {
	var d float64
	for _, s := range t.Segments {
		d += s.Duration()
	}
	return d
}

// Total includes intro and outro
func (t *Timeline) Total() float64 {
	d := t.Duration()
	if t.Intro != nil {
		d += t.Intro.Duration
	}
	if t.Outro != nil {
		d += t.Outro.Duration
	}
	return d
}

// Section is a contiguous range of the rendered output
type Section struct {
	Name       string
	Start, End float64
}

// Sections lists intro, main and outro in playback order
func (t *Timeline) Sections() []Section {
	var out []Section
	at := 0.0
	if t.Intro != nil {
		out = append(out, Section{Name: "intro", Start: at, End: at + t.Intro.Duration})
		at += t.Intro.Duration
	}
	out = append(out, Section{Name: "main", Start: at, End: at + t.Duration()})
	at += t.Duration()
	if t.Outro != nil {
		out = append(out, Section{Name: "outro", Start: at, End: at + t.Outro.Duration})
	}
	return out
}

// Planner builds timelines from probed inputs
type Planner struct {
	prober media.Prober
}

func NewPlanner(prober media.Prober) *Planner {
	return &Planner{prober: prober}
}

// Plan validates the assembly and fixes every clip's placement.
// Unusable scene assets become placeholders; unusable narration, background,
// intro or outro files are errors. Unusable music is skipped.
func (p *Planner) Plan(ctx context.Context, a *types.Assembly, layout workdir.Layout) (*Timeline, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	t := &Timeline{
		Canvas:    Size{Width: config.FrameWidth, Height: config.FrameHeight},
		Subtitles: a.Subtitles,
		Avatar:    a.HasAvatar(),
	}

	if a.Background != nil {
		bg, err := p.background(ctx, a.Background)
		if err != nil {
			return nil, err
		}
		t.Background = bg
		t.Canvas = Size{
			Width:  even(float64(bg.Frame.Width) * config.BackgroundImageScale),
			Height: even(float64(bg.Frame.Height) * config.BackgroundImageScale),
		}
	}

	at := 0.0
	for _, scene := range a.Scenes {
		seg, err := p.segment(ctx, scene, at)
		if err != nil {
			return nil, err
		}
		t.Segments = append(t.Segments, seg)
		at += seg.Duration()
	}

	if a.Music != "" {
		info, err := p.prober.Probe(ctx, a.Music)
		if err != nil || !info.HasAudio {
			log.Printf("⚠️  background music %s unusable, rendering without it: %v", a.Music, err)
		} else {
			t.Music = &AudioLayer{Path: a.Music, Duration: info.Duration}
		}
	}

	var err error
	if t.Intro, err = p.bookend(ctx, "intro", a.Intro); err != nil {
		return nil, err
	}
	if t.Outro, err = p.bookend(ctx, "outro", a.Outro); err != nil {
		return nil, err
	}

	return t, nil
}

func (p *Planner) segment(ctx context.Context, scene types.Scene, start float64) (Segment, error) {
	if scene.AudioPath == "" {
		return Segment{}, fmt.Errorf("scene %d has no narration audio", scene.Index)
	}
	info, err := p.prober.Probe(ctx, scene.AudioPath)
	if err != nil {
		return Segment{}, fmt.Errorf("scene %d narration: %w", scene.Index, err)
	}
	if !info.HasAudio || info.Duration <= 0 {
		return Segment{}, fmt.Errorf("scene %d narration %s has no audio", scene.Index, scene.AudioPath)
	}

	seg := Segment{
		SceneIndex:    scene.Index,
		AudioPath:     scene.AudioPath,
		AudioDuration: info.Duration,
		Start:         start,
		Caption:       scene.Text,
	}
	if scene.IsLast {
		seg.Padding = config.SilenceUnit * config.SilenceUnitsOnLastScene
	}

	usable := p.usableAssets(ctx, scene)
	total := seg.Duration()

	if len(usable) == 0 {
		seg.Clips = []Clip{{
			SceneIndex: scene.Index,
			Kind:       types.AssetUnknown,
			Start:      start,
			Duration:   total,
		}}
		return seg, nil
	}

	slot := total / float64(len(usable))
	at := start
	used := 0.0
	for i, u := range usable {
		d := slot
		if i == len(usable)-1 {
			d = total - used
		}
		seg.Clips = append(seg.Clips, Clip{
			SceneIndex:     scene.Index,
			Kind:           u.kind,
			Path:           u.path,
			Start:          at,
			Duration:       d,
			Fade:           d * config.FadeRatio,
			SourceDuration: u.duration,
		})
		at += d
		used += d
	}
	return seg, nil
}

type usableAsset struct {
	path     string
	kind     types.AssetKind
	duration float64
}

func (p *Planner) usableAssets(ctx context.Context, scene types.Scene) []usableAsset {
	var out []usableAsset
	for _, asset := range scene.Assets {
		if asset.Missing() {
			continue
		}
		kind := media.Classify(asset.Path)
		if kind == types.AssetUnknown {
			log.Printf("⚠️  scene %d asset %s is neither image nor video, skipping", scene.Index, asset.Path)
			continue
		}
		info, err := p.prober.Probe(ctx, asset.Path)
		if err != nil || !info.HasVideo {
			log.Printf("⚠️  scene %d asset %s unreadable, skipping: %v", scene.Index, asset.Path, err)
			continue
		}
		if kind == types.AssetVideo && info.Duration <= 0 {
			log.Printf("⚠️  scene %d video %s has no duration, skipping", scene.Index, asset.Path)
			continue
		}
		out = append(out, usableAsset{path: asset.Path, kind: kind, duration: info.Duration})
	}
	return out
}

func (p *Planner) background(ctx context.Context, bg *types.Background) (*BackgroundLayer, error) {
	key, err := bg.RGB()
	if err != nil {
		return nil, err
	}
	kind := media.Classify(bg.Source)
	if kind == types.AssetUnknown {
		return nil, fmt.Errorf("background %s is neither image nor video", bg.Source)
	}
	info, err := p.prober.Probe(ctx, bg.Source)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if !info.HasVideo || info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("background %s has no frame size", bg.Source)
	}
	return &BackgroundLayer{
		Path:       bg.Source,
		Kind:       kind,
		Frame:      Size{Width: info.Width, Height: info.Height},
		Key:        key,
		Similarity: similarity(bg.Threshold),
		Blend:      1.0 / config.ChromaStiffness,
		Top:        bg.Top,
		Left:       bg.Left,
	}, nil
}

func (p *Planner) bookend(ctx context.Context, name, path string) (*Bookend, error) {
	if path == "" {
		return nil, nil
	}
	info, err := p.prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !info.HasVideo || info.Duration <= 0 {
		return nil, fmt.Errorf("%s %s has no video", name, path)
	}
	return &Bookend{Path: path, Duration: info.Duration, HasAudio: info.HasAudio}, nil
}

// similarity maps a color distance threshold in RGB units onto colorkey's 0..1 scale
func similarity(threshold float64) float64 {
	s := threshold / (255 * math.Sqrt(3))
	return math.Min(math.Max(s, 0.01), 1)
}

// even rounds down to an even pixel count, which yuv420p requires
func even(v float64) int {
	n := int(v)
	if n%2 == 1 {
		n--
	}
	if n < 2 {
		n = 2
	}
	return n
}
