// Package script turns the narration script produced upstream into ordered
// (narration text, visual description) units grouped by scene.
package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedShape is returned when no known script layout matches
var ErrUnsupportedShape = errors.New("unsupported script shape")

// Shape names the layout a script was parsed with
type Shape string

const (
	ShapeScene     Shape = "scene"
	ShapeSection   Shape = "section"
	ShapeSentences Shape = "sentences"
	// ShapeFlat is the non-subdivided layout: one image/dialogue pair per scene
	ShapeFlat Shape = "flat"
)

const imageField = "image_description"

// Unit is one narration text with the description of the visual illustrating it
type Unit struct {
	Text              string `json:"text"`
	VisualDescription string `json:"visual_description"`
}

// Scene groups the units narrated together
type Scene struct {
	Units []Unit `json:"units"`
}

// Text joins the narration of all units
func (s Scene) Text() string {
	parts := make([]string, 0, len(s.Units))
	for _, u := range s.Units {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Script is a normalized narration script
type Script struct {
	Title  string  `json:"title,omitempty"`
	Shape  Shape   `json:"shape"`
	Scenes []Scene `json:"scenes"`
}

// Texts returns the narration of every scene in order
func (s *Script) Texts() []string {
	out := make([]string, len(s.Scenes))
	for i, sc := range s.Scenes {
		out[i] = sc.Text()
	}
	return out
}

// Descriptions returns the visual descriptions of every scene in order
func (s *Script) Descriptions() [][]string {
	out := make([][]string, len(s.Scenes))
	for i, sc := range s.Scenes {
		for _, u := range sc.Units {
			out[i] = append(out[i], u.VisualDescription)
		}
	}
	return out
}

type document struct {
	Title  string                       `json:"title"`
	Scenes []map[string]json.RawMessage `json:"scenes"`
}

// Parse normalizes raw into a Script. Subdivided scripts carry a list of
// sub-entries per scene; the others carry one image/dialogue pair per scene.
// The layout is chosen once from the first scene and every scene must follow it.
func Parse(raw []byte, subdivided bool) (*Script, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if len(doc.Scenes) == 0 {
		return nil, fmt.Errorf("%w: script has no scenes", ErrUnsupportedShape)
	}

	var s *Script
	if subdivided {
		s, err = parseGrouped(doc.Scenes)
	} else {
		s, err = parseFlat(doc.Scenes)
	}
	if err != nil {
		return nil, err
	}
	s.Title = doc.Title
	return s, nil
}

func decode(raw []byte) (*document, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty script", ErrUnsupportedShape)
	}

	// Bare scene arrays are accepted as well as {"scenes": [...]}
	if strings.HasPrefix(trimmed, "[") {
		var scenes []map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &scenes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, err)
		}
		return &document{Scenes: scenes}, nil
	}

	var doc document
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, err)
	}
	return &doc, nil
}

// groupingField picks the grouping key from the first scene: "scene" when it
// holds a list, else "section" when present, else "sentences"
func groupingField(first map[string]json.RawMessage) Shape {
	if _, ok := subEntries(first, string(ShapeScene)); ok {
		return ShapeScene
	}
	if _, ok := first[string(ShapeSection)]; ok {
		return ShapeSection
	}
	return ShapeSentences
}

func parseGrouped(scenes []map[string]json.RawMessage) (*Script, error) {
	shape := groupingField(scenes[0])
	firstEntries, ok := subEntries(scenes[0], string(shape))
	if !ok || len(firstEntries) == 0 {
		return nil, fmt.Errorf("%w: scene 0 has no %s list", ErrUnsupportedShape, shape)
	}

	narrationField := "narration"
	if _, ok := firstEntries[0]["sentence"]; ok {
		narrationField = "sentence"
	}

	out := &Script{Shape: shape, Scenes: make([]Scene, 0, len(scenes))}
	for i, sc := range scenes {
		entries, ok := subEntries(sc, string(shape))
		if !ok || len(entries) == 0 {
			return nil, fmt.Errorf("%w: scene %d has no %s list", ErrUnsupportedShape, i, shape)
		}
		scene := Scene{Units: make([]Unit, 0, len(entries))}
		for j, e := range entries {
			text, ok := stringField(e, narrationField)
			if !ok {
				return nil, fmt.Errorf("%w: scene %d entry %d has no %s", ErrUnsupportedShape, i, j, narrationField)
			}
			desc, ok := stringField(e, imageField)
			if !ok {
				return nil, fmt.Errorf("%w: scene %d entry %d has no %s", ErrUnsupportedShape, i, j, imageField)
			}
			scene.Units = append(scene.Units, Unit{Text: text, VisualDescription: desc})
		}
		out.Scenes = append(out.Scenes, scene)
	}
	return out, nil
}

func parseFlat(scenes []map[string]json.RawMessage) (*Script, error) {
	out := &Script{Shape: ShapeFlat, Scenes: make([]Scene, 0, len(scenes))}
	for i, sc := range scenes {
		text, ok := stringField(sc, "dialogue")
		if !ok {
			return nil, fmt.Errorf("%w: scene %d has no dialogue", ErrUnsupportedShape, i)
		}
		desc, ok := stringField(sc, "image")
		if !ok {
			return nil, fmt.Errorf("%w: scene %d has no image", ErrUnsupportedShape, i)
		}
		out.Scenes = append(out.Scenes, Scene{Units: []Unit{{Text: text, VisualDescription: desc}}})
	}
	return out, nil
}

// subEntries decodes obj[field] as a list of objects
func subEntries(obj map[string]json.RawMessage, field string) ([]map[string]json.RawMessage, bool) {
	raw, ok := obj[field]
	if !ok {
		return nil, false
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func stringField(obj map[string]json.RawMessage, field string) (string, bool) {
	raw, ok := obj[field]
	if !ok {
		// Model output sometimes pads keys with spaces
		for k, v := range obj {
			if strings.TrimSpace(k) == field {
				raw, ok = v, true
				break
			}
		}
		if !ok {
			return "", false
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}
