// Package workdir is the typed contract for an assembly's working directory.
//
//	<root>/images/            visual assets
//	<root>/dialogues/         narration audio
//	<root>/captions/          caption text used while rendering
//	<root>/output_audio.wav   concatenated narration
//	<root>/output_avatar.mp4  cached avatar render
//	<root>/output_video.mp4   final render
//
// Callers locate results through this layout, never through string templates.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"storyreel/config"
)

// Layout resolves every path inside one assembly's directory
type Layout struct {
	root string
}

// New returns the layout for assembly id under base
func New(base, id string) Layout {
	return Layout{root: filepath.Join(base, id)}
}

// At wraps an existing directory
func At(root string) Layout {
	return Layout{root: root}
}

// Create makes the directory tree
func (l Layout) Create() error {
	for _, dir := range []string{l.root, l.Images(), l.Dialogues(), l.Captions()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (l Layout) Root() string        { return l.root }
func (l Layout) Images() string      { return filepath.Join(l.root, config.ImagesDirName) }
func (l Layout) Dialogues() string   { return filepath.Join(l.root, config.DialoguesDirName) }
func (l Layout) Captions() string    { return filepath.Join(l.root, config.CaptionsDirName) }
func (l Layout) MixedAudio() string  { return filepath.Join(l.root, config.MixedAudioFile) }
func (l Layout) AvatarVideo() string { return filepath.Join(l.root, config.AvatarVideoFile) }
func (l Layout) OutputVideo() string { return filepath.Join(l.root, config.OutputVideoFile) }

// SceneAudio is where synthesized narration for a scene is written
func (l Layout) SceneAudio(index int) string {
	return filepath.Join(l.Dialogues(), fmt.Sprintf("scene_%03d.mp3", index))
}

// Caption is the caption text file for a scene
func (l Layout) Caption(index int) string {
	return filepath.Join(l.Captions(), fmt.Sprintf("scene_%03d.txt", index))
}

// ScenePrefix namespaces acquired files so concurrent acquisitions never share names
func ScenePrefix(index int) string {
	return fmt.Sprintf("scene_%03d_", index)
}

// Exists reports whether path is an existing regular file
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
