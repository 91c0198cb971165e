package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want types.AssetKind
	}{
		{"images/a.png", types.AssetImage},
		{"images/a.JPG", types.AssetImage},
		{"images/a.jpeg", types.AssetImage},
		{"clips/b.mp4", types.AssetVideo},
		{"clips/b.AVI", types.AssetVideo},
		{"clips/b.mov", types.AssetUnknown},
		{"notes.txt", types.AssetUnknown},
		{"noext", types.AssetUnknown},
		{"", types.AssetUnknown},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			if got := Classify(c.path); got != c.want {
				t.Fatalf("Classify(%q) = %s; want %s", c.path, got, c.want)
			}
		})
	}
}

func TestParseProbe(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Info
		wantErr bool
	}{
		{
			name: "video with audio",
			raw:  `{"format":{"duration":"12.500"},"streams":[{"codec_type":"video","width":1280,"height":720},{"codec_type":"audio"}]}`,
			want: Info{Duration: 12.5, Width: 1280, Height: 720, HasVideo: true, HasAudio: true},
		},
		{
			name: "audio with stream duration",
			raw:  `{"format":{},"streams":[{"codec_type":"audio","duration":"3.25"}]}`,
			want: Info{Duration: 3.25, HasAudio: true},
		},
		{name: "no streams", raw: `{"format":{"duration":"1"},"streams":[]}`, wantErr: true},
		{name: "garbage", raw: `not json`, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := parseProbe(c.raw)
			if c.wantErr {
				if err == nil {
					t.Fatalf("parseProbe accepted %s", c.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbe error: %v", err)
			}
			if got != c.want {
				t.Fatalf("parseProbe = %+v; want %+v", got, c.want)
			}
		})
	}
}

func TestFadeArgs(t *testing.T) {
	args := strings.Join(Fade(ffmpeg.Input("a.png"), 2.0, 0.4).Output("out.mp4").GetArgs(), " ")
	for _, want := range []string{"t=in", "t=out", "st=1.600", "d=0.400"} {
		if !strings.Contains(args, want) {
			t.Fatalf("fade args missing %s: %s", want, args)
		}
	}
	if Fade(ffmpeg.Input("a.png"), 2, 0).Output("o.mp4").GetArgs() == nil {
		t.Fatal("zero fade should leave the stream usable")
	}
}

func TestHoldPadsShortVideo(t *testing.T) {
	short := strings.Join(Hold(ffmpeg.Input("c.mp4").Video(), 1.0, 3.0).Output("o.mp4").GetArgs(), " ")
	if !strings.Contains(short, "tpad") || !strings.Contains(short, "stop_duration=2.000") {
		t.Fatalf("short clip should be held: %s", short)
	}
	long := strings.Join(Hold(ffmpeg.Input("c.mp4").Video(), 9.0, 3.0).Output("o.mp4").GetArgs(), " ")
	if strings.Contains(long, "tpad") || !strings.Contains(long, "duration=3.000") {
		t.Fatalf("long clip should only be trimmed: %s", long)
	}
}

type recordRunner struct {
	args [][]string
}

func (r *recordRunner) Run(ctx context.Context, s *ffmpeg.Stream) error {
	args := s.GetArgs()
	r.args = append(r.args, args)
	for _, a := range args {
		if strings.HasSuffix(a, ".mp3") || strings.HasSuffix(a, ".mp4") {
			if strings.Contains(a, "/dialogues/") || strings.Contains(a, "/images/") || strings.HasSuffix(a, ".l.mp4") {
				os.WriteFile(a, []byte("x"), 0o644)
			}
		}
	}
	return nil
}

type staticProber struct{ info Info }

func (s staticProber) Probe(ctx context.Context, path string) (Info, error) { return s.info, nil }

func TestSplitVideoAndAudio(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "upload.mp4")
	os.WriteFile(src, []byte("video"), 0o644)

	r := &recordRunner{}
	audio, video, err := SplitVideoAndAudio(context.Background(), r, src)
	if err != nil {
		t.Fatalf("SplitVideoAndAudio error: %v", err)
	}
	if filepath.Dir(audio) != filepath.Join(dir, "dialogues") || filepath.Ext(audio) != ".mp3" {
		t.Fatalf("audio = %s", audio)
	}
	if filepath.Dir(video) != filepath.Join(dir, "images") || filepath.Ext(video) != ".mp4" {
		t.Fatalf("video = %s", video)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source should be removed")
	}
	if !strings.Contains(strings.Join(r.args[1], " "), "-an") {
		t.Fatalf("video output should drop audio: %v", r.args[1])
	}
}

func TestAddText(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	os.WriteFile(src, []byte("video"), 0o644)

	r := &recordRunner{}
	out, err := AddText(context.Background(), r, staticProber{Info{HasVideo: true, HasAudio: true}}, src, "Chapter one", DefaultTextOptions())
	if err != nil {
		t.Fatalf("AddText error: %v", err)
	}
	if out != filepath.Join(dir, "clip.l.mp4") {
		t.Fatalf("out = %s", out)
	}
	joined := strings.Join(r.args[0], " ")
	for _, want := range []string{"drawtext", "fontcolor=blue", "fontsize=50", "x=500", "y=500", "c:a copy"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source should be removed")
	}
}
