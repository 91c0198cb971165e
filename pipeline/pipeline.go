// Package pipeline runs assemblies from request to rendered video and is the
// single place where their status changes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"storyreel/config"
	"storyreel/narration"
	"storyreel/script"
	"storyreel/store"
	"storyreel/types"
	"storyreel/workdir"

	"github.com/google/uuid"
)

// Acquirer fills scenes with visual assets
type Acquirer interface {
	AcquireAll(ctx context.Context, a *types.Assembly, descriptions [][]string) error
	Regenerate(ctx context.Context, a *types.Assembly, sceneIndex, assetIndex int, style string) (types.VisualAsset, bool, error)
}

// Composer renders an assembly into its working directory
type Composer interface {
	Compose(ctx context.Context, a *types.Assembly, layout workdir.Layout) (string, error)
}

// Inputs localizes remote request inputs and uploads renders
type Inputs interface {
	Localize(ctx context.Context, a *types.Assembly, layout workdir.Layout) error
	Upload(ctx context.Context, assemblyID, file string) (string, error)
}

// Publisher pushes a finished render somewhere public
type Publisher interface {
	Publish(ctx context.Context, a *types.Assembly, file string) (string, error)
}

// ErrExists is returned when a request reuses the id of a recorded assembly
var ErrExists = errors.New("assembly already exists")

// Deps are the collaborators of a Service. Narrator, Inputs and Publisher are optional.
type Deps struct {
	Repo      store.Repository
	Tracker   *Tracker
	Acquirer  Acquirer
	Composer  Composer
	Narrator  narration.Narrator
	Inputs    Inputs
	Publisher Publisher
	WorkRoot  string
	// MaxRuns bounds assemblies rendering at once
	MaxRuns int
}

// Service prepares and runs assemblies
type Service struct {
	repo      store.Repository
	tracker   *Tracker
	acquirer  Acquirer
	composer  Composer
	narrator  narration.Narrator
	inputs    Inputs
	publisher Publisher
	workRoot  string

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewService wires a Service
func NewService(d Deps) (*Service, error) {
	if d.Repo == nil || d.Acquirer == nil || d.Composer == nil {
		return nil, errors.New("pipeline needs a repository, an acquirer and a composer")
	}
	if d.Tracker == nil {
		d.Tracker = NewTracker(d.Repo, nil)
	}
	if d.WorkRoot == "" {
		d.WorkRoot = config.Default().WorkRoot
	}
	if d.MaxRuns < 1 {
		d.MaxRuns = 1
	}
	return &Service{
		repo:      d.Repo,
		tracker:   d.Tracker,
		acquirer:  d.Acquirer,
		composer:  d.Composer,
		narrator:  d.Narrator,
		inputs:    d.Inputs,
		publisher: d.Publisher,
		workRoot:  d.WorkRoot,
		slots:     make(chan struct{}, d.MaxRuns),
	}, nil
}

// Tracker exposes status and logs for the HTTP surface
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Prepare validates req, normalizes its script and stores a PENDING assembly.
// A script that cannot be normalized still records the assembly, PENDING with
// the error, so it can be inspected; nothing is acquired for it.
func (s *Service) Prepare(ctx context.Context, req *types.AssemblyRequest) (*types.Assembly, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	mode, _ := types.ParseMode(req.Images)

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.repo.GetAssembly(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	layout := workdir.New(s.workRoot, id)
	if err := layout.Create(); err != nil {
		return nil, err
	}

	style := strings.ToLower(req.Style)
	if style == "" {
		style = config.DefaultStyle
	}

	a := &types.Assembly{
		ID:             id,
		Title:          req.Title,
		WorkDir:        layout.Root(),
		Mode:           mode,
		Provider:       req.Provider,
		Style:          style,
		Background:     req.Background,
		AvatarImage:    req.Avatar,
		AvatarRequired: req.AvatarRequired,
		Music:          req.Music,
		Intro:          req.Intro,
		Outro:          req.Outro,
		Subtitles:      req.Subtitles,
		Status:         types.StatusPending,
		CreatedAt:      time.Now(),
	}

	parsed, parseErr := script.Parse(req.Script, req.IsSubdivided())
	if parseErr == nil {
		parseErr = s.buildScenes(a, parsed, req.Audio)
	}
	if parseErr != nil {
		a.Scenes = nil
		a.Error = parseErr.Error()
	}

	a.UpdatedAt = time.Now()
	if err := s.repo.SaveAssembly(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save assembly: %w", err)
	}
	s.tracker.Register(a)

	if parseErr != nil {
		s.tracker.Logf(id, "❌ Script rejected: %v", parseErr)
		return a, fmt.Errorf("script rejected: %w", parseErr)
	}
	s.tracker.Logf(id, "Script parsed as %s: %d scenes", parsed.Shape, len(a.Scenes))
	return a, nil
}

func (s *Service) buildScenes(a *types.Assembly, parsed *script.Script, audio []string) error {
	if len(audio) > 0 && len(audio) != len(parsed.Scenes) {
		return fmt.Errorf("got %d narration files for %d scenes", len(audio), len(parsed.Scenes))
	}
	if a.Title == "" {
		a.Title = parsed.Title
	}

	a.Scenes = types.NewScenes(parsed.Texts())
	for i, descs := range parsed.Descriptions() {
		scene := &a.Scenes[i]
		if len(audio) > 0 {
			scene.AudioPath = audio[i]
		}
		for j, d := range descs {
			scene.Assets = append(scene.Assets, types.VisualAsset{
				SceneIndex: scene.Index,
				Position:   j,
				Prompt:     d,
				Kind:       types.AssetUnknown,
			})
		}
	}
	return nil
}

// Run takes a PENDING assembly through narration, acquisition and
// composition. Any failure after the assembly starts is recorded as FAILED
// before Run returns.
func (s *Service) Run(ctx context.Context, id string) error {
	a, err := s.repo.GetAssembly(ctx, id)
	if err != nil {
		return err
	}
	if a.Error != "" && a.Status == types.StatusPending {
		return fmt.Errorf("assembly %s cannot start: %s", id, a.Error)
	}

	if err := s.tracker.Transition(ctx, id, types.StatusProcessing, "", "", ""); err != nil {
		return err
	}
	a.Status = types.StatusProcessing

	output, uri, err := s.execute(ctx, a)
	if err != nil {
		s.tracker.Logf(id, "❌ Assembly failed: %v", err)
		// the failure must be recorded even when ctx is what failed
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if terr := s.tracker.Transition(recordCtx, id, types.StatusFailed, "", "", err.Error()); terr != nil {
			log.Printf("❌ failed to record failure of %s: %v", id, terr)
		}
		return err
	}

	if err := s.tracker.Transition(ctx, id, types.StatusCompleted, output, uri, ""); err != nil {
		return err
	}
	s.tracker.Logf(id, "✅ Assembly completed: %s", output)
	return nil
}

func (s *Service) execute(ctx context.Context, a *types.Assembly) (string, string, error) {
	layout := workdir.At(a.WorkDir)
	if err := layout.Create(); err != nil {
		return "", "", err
	}
	if err := a.Validate(); err != nil {
		return "", "", err
	}

	if s.inputs != nil {
		s.tracker.Logf(a.ID, "Fetching inputs...")
		if err := s.inputs.Localize(ctx, a, layout); err != nil {
			return "", "", fmt.Errorf("failed to fetch inputs: %w", err)
		}
	}

	if needsNarration(a) {
		if s.narrator == nil {
			return "", "", errors.New("scenes have no narration audio and no narrator is configured")
		}
		s.tracker.Logf(a.ID, "🎭 Synthesizing narration...")
		if err := narration.SynthesizeAll(ctx, s.narrator, a); err != nil {
			return "", "", err
		}
	}
	if err := s.repo.SaveAssembly(ctx, a); err != nil {
		return "", "", fmt.Errorf("failed to save scenes: %w", err)
	}

	s.tracker.Logf(a.ID, "Acquiring visual assets (%s)...", a.Mode)
	if err := s.acquirer.AcquireAll(ctx, a, descriptions(a)); err != nil {
		return "", "", fmt.Errorf("acquisition failed: %w", err)
	}
	if err := s.repo.SaveAssembly(ctx, a); err != nil {
		return "", "", fmt.Errorf("failed to save assets: %w", err)
	}
	if missing := a.MissingAssets(); missing > 0 {
		s.tracker.Logf(a.ID, "⚠️  %d assets missing, placeholders will be rendered", missing)
	}

	s.tracker.Logf(a.ID, "🎬 Rendering...")
	output, err := s.composer.Compose(ctx, a, layout)
	if err != nil {
		return "", "", err
	}

	var uri string
	if s.inputs != nil {
		uri, err = s.inputs.Upload(ctx, a.ID, output)
		if err != nil {
			return "", "", fmt.Errorf("failed to upload render: %w", err)
		}
	}

	if s.publisher != nil {
		link, err := s.publisher.Publish(ctx, a, output)
		if err != nil {
			// the render exists; publishing is best effort
			s.tracker.Logf(a.ID, "⚠️  Publishing failed: %v", err)
		} else {
			s.tracker.Logf(a.ID, "Published: %s", link)
		}
	}
	return output, uri, nil
}

func needsNarration(a *types.Assembly) bool {
	for _, sc := range a.Scenes {
		if sc.AudioPath == "" {
			return true
		}
	}
	return false
}

func descriptions(a *types.Assembly) [][]string {
	out := make([][]string, len(a.Scenes))
	for i, sc := range a.Scenes {
		out[i] = make([]string, len(sc.Assets))
		for j, v := range sc.Assets {
			out[i][j] = v.Prompt
		}
	}
	return out
}

// Submit prepares req and runs it in the background. Call Wait to drain
// running assemblies on shutdown.
func (s *Service) Submit(ctx context.Context, req *types.AssemblyRequest) (*types.Assembly, error) {
	a, err := s.Prepare(ctx, req)
	if err != nil {
		return a, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx := context.WithoutCancel(ctx)

		s.slots <- struct{}{}
		defer func() { <-s.slots }()

		if err := s.Run(runCtx, a.ID); err != nil {
			log.Printf("❌ Assembly %s failed: %v", a.ID, err)
		}
	}()
	return a, nil
}

// RunSync runs a prepared assembly while holding a render slot
func (s *Service) RunSync(ctx context.Context, id string) error {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slots }()
	return s.Run(ctx, id)
}

// Wait blocks until every submitted assembly has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// RegenerateImage re-acquires one asset of a scene with the mode's default
// provider. The previous asset stays in place when the new acquisition fails.
func (s *Service) RegenerateImage(ctx context.Context, id string, sceneIndex, assetIndex int, style string) (types.VisualAsset, bool, error) {
	a, err := s.repo.GetAssembly(ctx, id)
	if err != nil {
		return types.VisualAsset{}, false, err
	}
	if a.Status == types.StatusProcessing {
		return types.VisualAsset{}, false, fmt.Errorf("assembly %s is rendering", id)
	}

	asset, replaced, err := s.acquirer.Regenerate(ctx, a, sceneIndex, assetIndex, style)
	if err != nil {
		return types.VisualAsset{}, false, err
	}
	if replaced {
		s.tracker.Logf(id, "Regenerated asset %d of scene %d: %s", assetIndex, sceneIndex, asset.Path)
	} else {
		s.tracker.Logf(id, "⚠️  Regeneration of asset %d of scene %d failed, keeping previous asset", assetIndex, sceneIndex)
	}
	return asset, replaced, nil
}

// Status returns the status snapshot of an assembly
func (s *Service) Status(ctx context.Context, id string) (types.StatusResponse, error) {
	return s.tracker.Status(ctx, id)
}
