package types

// AssetKind classifies a visual asset by file extension
type AssetKind string

const (
	AssetImage   AssetKind = "image"
	AssetVideo   AssetKind = "video"
	AssetUnknown AssetKind = "unknown"
)

// Scene is one narration unit with its audio and visual assets
type Scene struct {
	Index     int           `json:"index"`
	Text      string        `json:"text"`
	AudioPath string        `json:"audio_path"`
	IsLast    bool          `json:"is_last"`
	Assets    []VisualAsset `json:"assets"`
}

// VisualAsset is the result of one acquisition for a scene.
// An empty Path means acquisition failed and a placeholder is rendered.
type VisualAsset struct {
	SceneIndex int       `json:"scene_index"`
	Position   int       `json:"position"`
	Prompt     string    `json:"prompt"`
	Path       string    `json:"path,omitempty"`
	Kind       AssetKind `json:"kind"`
	Provider   string    `json:"provider"`
}

// Missing reports whether the asset has no file
func (v VisualAsset) Missing() bool {
	return v.Path == ""
}

// NewScenes builds ordered scenes from narration texts, marking the final one
func NewScenes(texts []string) []Scene {
	scenes := make([]Scene, len(texts))
	for i, t := range texts {
		scenes[i] = Scene{Index: i, Text: t, IsLast: i == len(texts)-1}
	}
	return scenes
}
