package compose

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"storyreel/config"
	"storyreel/workdir"
)

// captionLineWidth approximates how many characters of the caption font fit the box
var captionLineWidth = config.SubtitleBoxWidth * 100 / (config.SubtitleFontSize * 55)

// WrapCaption breaks text into lines of at most width characters on word boundaries
func WrapCaption(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

// writeCaptions writes one caption file per segment and returns a cleanup func.
// drawtext reads them from disk so narration text never has to be escaped.
func writeCaptions(t *Timeline, layout workdir.Layout) (func(), error) {
	cleanup := func() {
		for i := range t.Segments {
			if t.Segments[i].CaptionFile != "" {
				os.Remove(t.Segments[i].CaptionFile)
			}
		}
	}
	if err := os.MkdirAll(layout.Captions(), 0o755); err != nil {
		return cleanup, fmt.Errorf("failed to create captions dir: %w", err)
	}
	for i := range t.Segments {
		seg := &t.Segments[i]
		path := layout.Caption(seg.SceneIndex)
		if err := os.WriteFile(path, []byte(WrapCaption(seg.Caption, captionLineWidth)), 0o644); err != nil {
			return cleanup, fmt.Errorf("failed to write caption for scene %d: %w", seg.SceneIndex, err)
		}
		seg.CaptionFile = path
	}
	return cleanup, nil
}
