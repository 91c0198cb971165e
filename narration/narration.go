// Package narration synthesizes per-scene narration audio when a request
// does not bring its own.
package narration

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"storyreel/types"
	"storyreel/workdir"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Narrator turns text into an audio file at outPath
type Narrator interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// OpenAI speaks text with the OpenAI speech endpoint
type OpenAI struct {
	client openai.Client
	voice  string
	model  string
}

// NewOpenAI creates a narrator. Extra options go to the OpenAI client.
func NewOpenAI(apiKey, voice, model string, opts ...option.RequestOption) *OpenAI {
	if voice == "" {
		voice = "alloy"
	}
	if model == "" {
		model = "tts-1"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(opts...), voice: voice, model: model}
}

// Synthesize writes mp3 narration for text to outPath
func (o *OpenAI) Synthesize(ctx context.Context, text, outPath string) error {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outPath)
		return fmt.Errorf("failed to write narration: %w", err)
	}
	return f.Close()
}

// SynthesizeAll narrates every scene without audio into dialogues/scene_NNN.mp3
// and records the path on the scene. Scenes that already carry audio are kept.
func SynthesizeAll(ctx context.Context, n Narrator, assembly *types.Assembly) error {
	layout := workdir.At(assembly.WorkDir)
	for i := range assembly.Scenes {
		scene := &assembly.Scenes[i]
		if scene.AudioPath != "" {
			continue
		}
		text := strings.TrimSpace(scene.Text)
		if text == "" {
			return fmt.Errorf("scene %d has no narration text", scene.Index)
		}

		out := layout.SceneAudio(scene.Index)
		log.Printf("Scene %d/%d: generating narration...", i+1, len(assembly.Scenes))
		if err := n.Synthesize(ctx, text, out); err != nil {
			return fmt.Errorf("scene %d narration failed: %w", scene.Index, err)
		}
		scene.AudioPath = out
	}
	return nil
}
