package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AssemblyRequest is the payload accepted over Kafka and HTTP
type AssemblyRequest struct {
	ID         string          `json:"id,omitempty"`
	Title      string          `json:"title"`
	Script     json.RawMessage `json:"script"`
	Subdivided *bool           `json:"subdivided,omitempty"`

	// Audio optionally carries one narration file per scene, in order.
	// When empty the narration collaborator synthesizes it.
	Audio []string `json:"audio,omitempty"`

	Images   string `json:"images,omitempty"` // AI | WEB
	Provider string `json:"provider,omitempty"`
	Style    string `json:"style,omitempty"` // vivid | natural

	Background     *Background `json:"background,omitempty"`
	Avatar         string      `json:"avatar,omitempty"`
	AvatarRequired bool        `json:"avatar_required,omitempty"`
	Music          string      `json:"music,omitempty"`
	Intro          string      `json:"intro,omitempty"`
	Outro          string      `json:"outro,omitempty"`
	Subtitles      bool        `json:"subtitles,omitempty"`
}

// IsSubdivided defaults to true: scenes carry a list of narration units
func (r *AssemblyRequest) IsSubdivided() bool {
	return r.Subdivided == nil || *r.Subdivided
}

// Validate checks the fields that do not need the script to be parsed
func (r *AssemblyRequest) Validate() error {
	if len(r.Script) == 0 {
		return fmt.Errorf("script is required")
	}
	if _, err := ParseMode(r.Images); err != nil {
		return err
	}
	switch strings.ToLower(r.Style) {
	case "", "vivid", "natural":
	default:
		return fmt.Errorf("unknown style %q", r.Style)
	}
	if r.Avatar == "no_avatar" {
		r.Avatar = ""
	}
	if r.AvatarRequired && r.Avatar == "" {
		return fmt.Errorf("avatar_required set without an avatar")
	}
	if r.Background != nil {
		if r.Background.Source == "" {
			return fmt.Errorf("background source is required")
		}
		if _, err := r.Background.RGB(); err != nil {
			return err
		}
	}
	return nil
}

// StatusEvent is published whenever an assembly changes status
type StatusEvent struct {
	AssemblyID string    `json:"assembly_id"`
	Status     Status    `json:"status"`
	Output     string    `json:"output,omitempty"`
	OutputURI  string    `json:"output_uri,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// LogEntry is a single timestamped line in an assembly's activity log
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON returned by GET /api/assemblies/:id
type StatusResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    Status     `json:"status"`
	Output    string     `json:"output,omitempty"`
	OutputURI string     `json:"output_uri,omitempty"`
	Error     string     `json:"error,omitempty"`
	Scenes    int        `json:"scenes"`
	Missing   int        `json:"missing_assets"`
	Logs      []LogEntry `json:"logs"`
}
