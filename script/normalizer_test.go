package script

import (
	"errors"
	"testing"
)

func TestParseShapes(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		subdivided bool
		wantShape  Shape
		wantTexts  []string
		wantDescs  [][]string
	}{
		{
			name: "scene list with sentence",
			raw: `{"title":"T","scenes":[
				{"scene":[{"sentence":"One.","image_description":"a"},{"sentence":"Two.","image_description":"b"}]},
				{"scene":[{"sentence":"Three.","image_description":"c"}]}]}`,
			subdivided: true,
			wantShape:  ShapeScene,
			wantTexts:  []string{"One. Two.", "Three."},
			wantDescs:  [][]string{{"a", "b"}, {"c"}},
		},
		{
			name: "scene name with section list",
			raw: `{"scenes":[
				{"scene":"Opening","section":[{"narration":"Hello","image_description":"sun"}]},
				{"scene":"Closing","section":[{"narration":"Bye","image_description":"moon"}]}]}`,
			subdivided: true,
			wantShape:  ShapeSection,
			wantTexts:  []string{"Hello", "Bye"},
			wantDescs:  [][]string{{"sun"}, {"moon"}},
		},
		{
			name:       "sentences with padded key",
			raw:        `{"scenes":[{"sentences":[{"narration ":" Padded ","image_description":"x"}]}]}`,
			subdivided: true,
			wantShape:  ShapeSentences,
			wantTexts:  []string{"Padded"},
			wantDescs:  [][]string{{"x"}},
		},
		{
			name:       "flat",
			raw:        `{"scenes":[{"image":"cat","dialogue":"Meow"},{"image":"dog","dialogue":"Woof"}]}`,
			subdivided: false,
			wantShape:  ShapeFlat,
			wantTexts:  []string{"Meow", "Woof"},
			wantDescs:  [][]string{{"cat"}, {"dog"}},
		},
		{
			name:       "bare array",
			raw:        `[{"image":"cat","dialogue":"Meow"}]`,
			subdivided: false,
			wantShape:  ShapeFlat,
			wantTexts:  []string{"Meow"},
			wantDescs:  [][]string{{"cat"}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := Parse([]byte(c.raw), c.subdivided)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if s.Shape != c.wantShape {
				t.Fatalf("shape = %s; want %s", s.Shape, c.wantShape)
			}
			texts := s.Texts()
			if len(texts) != len(c.wantTexts) {
				t.Fatalf("texts = %v; want %v", texts, c.wantTexts)
			}
			for i := range texts {
				if texts[i] != c.wantTexts[i] {
					t.Fatalf("text[%d] = %q; want %q", i, texts[i], c.wantTexts[i])
				}
			}
			descs := s.Descriptions()
			for i := range c.wantDescs {
				if len(descs[i]) != len(c.wantDescs[i]) {
					t.Fatalf("descs[%d] = %v; want %v", i, descs[i], c.wantDescs[i])
				}
				for j := range descs[i] {
					if descs[i][j] != c.wantDescs[i][j] {
						t.Fatalf("descs[%d][%d] = %q; want %q", i, j, descs[i][j], c.wantDescs[i][j])
					}
				}
			}
		})
	}
}

func TestParseShapeChosenOnce(t *testing.T) {
	// The second scene uses a different grouping field than the first
	raw := `{"scenes":[
		{"section":[{"narration":"a","image_description":"x"}]},
		{"sentences":[{"narration":"b","image_description":"y"}]}]}`
	if _, err := Parse([]byte(raw), true); !errors.Is(err, ErrUnsupportedShape) {
		t.Fatalf("err = %v; want ErrUnsupportedShape", err)
	}
}

func TestParseSectionKeyWinsOverSentences(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"section not a list", `{"scenes":[{"section":"intro","sentences":[{"narration":"a","image_description":"x"}]}]}`},
		{"section empty", `{"scenes":[{"section":[],"sentences":[{"narration":"a","image_description":"x"}]}]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Parse([]byte(c.raw), true); !errors.Is(err, ErrUnsupportedShape) {
				t.Fatalf("err = %v; want ErrUnsupportedShape", err)
			}
		})
	}

	// scene holding a name rather than a list still defers to section
	got, err := Parse([]byte(`{"scenes":[{"scene":"Opening","section":[{"narration":"a","image_description":"x"}],"sentences":[]}]}`), true)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Shape != ShapeSection {
		t.Fatalf("shape = %s; want %s", got.Shape, ShapeSection)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		subdivided bool
	}{
		{"empty", ``, true},
		{"not json", `scenes: yes`, true},
		{"no scenes", `{"scenes":[]}`, true},
		{"no grouping", `{"scenes":[{"foo":[]}]}`, true},
		{"missing description", `{"scenes":[{"section":[{"narration":"a"}]}]}`, true},
		{"flat missing dialogue", `{"scenes":[{"image":"a"}]}`, false},
		{"flat given grouped", `{"scenes":[{"section":[{"narration":"a","image_description":"b"}]}]}`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Parse([]byte(c.raw), c.subdivided); !errors.Is(err, ErrUnsupportedShape) {
				t.Fatalf("err = %v; want ErrUnsupportedShape", err)
			}
		})
	}
}
