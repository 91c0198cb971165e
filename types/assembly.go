package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a video assembly
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// ErrInvalidTransition is returned when a status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether s may move to next.
// PENDING -> PROCESSING -> COMPLETED | FAILED. PENDING may also fail directly
// when the pipeline cannot start.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Mode selects which providers may acquire visual assets
type Mode string

const (
	ModeAI  Mode = "AI"
	ModeWeb Mode = "WEB"
)

// ParseMode maps request values onto a Mode. Empty means WEB, matching the
// request form default.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "WEB":
		return ModeWeb, nil
	case "AI":
		return ModeAI, nil
	default:
		return "", fmt.Errorf("unknown acquisition mode %q", s)
	}
}

// Background describes a chroma-keyed frame the foreground is placed inside
type Background struct {
	Source    string  `json:"source"`
	Color     string  `json:"color"` // "r,g,b"
	Threshold float64 `json:"threshold"`
	Top       int     `json:"top"`
	Left      int     `json:"left"`
}

// RGB parses the "r,g,b" key color
func (b *Background) RGB() ([3]int, error) {
	var rgb [3]int
	parts := strings.Split(b.Color, ",")
	if len(parts) != 3 {
		return rgb, fmt.Errorf("background color %q must be \"r,g,b\"", b.Color)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return rgb, fmt.Errorf("background color component %q out of range", p)
		}
		rgb[i] = v
	}
	return rgb, nil
}

// Assembly is the aggregate root: one script turned into one rendered video
type Assembly struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	WorkDir  string `json:"work_dir"`
	Mode     Mode   `json:"mode"`
	Provider string `json:"provider,omitempty"`
	Style    string `json:"style"`

	Scenes []Scene `json:"scenes"`

	Background     *Background `json:"background,omitempty"`
	AvatarImage    string      `json:"avatar_image,omitempty"`
	AvatarRequired bool        `json:"avatar_required"`
	Music          string      `json:"music,omitempty"`
	Intro          string      `json:"intro,omitempty"`
	Outro          string      `json:"outro,omitempty"`
	Subtitles      bool        `json:"subtitles"`

	Status    Status    `json:"status"`
	Output    string    `json:"output,omitempty"`
	OutputURI string    `json:"output_uri,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAvatar reports whether an avatar overlay was requested
func (a *Assembly) HasAvatar() bool {
	return a.AvatarImage != ""
}

// Validate checks the scene ordering invariants: indexes 0..n-1 strictly
// increasing and exactly one is_last, on the final scene.
func (a *Assembly) Validate() error {
	if len(a.Scenes) == 0 {
		return fmt.Errorf("assembly %s has no scenes", a.ID)
	}
	lastCount := 0
	for i, s := range a.Scenes {
		if s.Index != i {
			return fmt.Errorf("scene at position %d has index %d", i, s.Index)
		}
		if s.IsLast {
			lastCount++
			if i != len(a.Scenes)-1 {
				return fmt.Errorf("scene %d is marked last but is not final", s.Index)
			}
		}
	}
	if lastCount != 1 {
		return fmt.Errorf("expected exactly one last scene, found %d", lastCount)
	}
	return nil
}

// Clone returns a deep copy, safe to hand to another goroutine
func (a *Assembly) Clone() *Assembly {
	c := *a
	if a.Background != nil {
		bg := *a.Background
		c.Background = &bg
	}
	c.Scenes = make([]Scene, len(a.Scenes))
	for i, s := range a.Scenes {
		s.Assets = append([]VisualAsset(nil), s.Assets...)
		c.Scenes[i] = s
	}
	return &c
}

// MissingAssets counts assets that will render as placeholders
func (a *Assembly) MissingAssets() int {
	n := 0
	for _, s := range a.Scenes {
		for _, v := range s.Assets {
			if v.Missing() {
				n++
			}
		}
	}
	return n
}
