// Package acquire dispatches per-scene visual asset acquisition to the
// provider registry and degrades failed acquisitions to placeholders.
package acquire

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"storyreel/config"
	"storyreel/media"
	"storyreel/providers"
	"storyreel/types"
	"storyreel/workdir"

	"golang.org/x/sync/errgroup"
)

// AssetSink persists acquired assets against their scene
type AssetSink interface {
	SaveAsset(ctx context.Context, assemblyID string, asset types.VisualAsset) error
}

// Options tunes an Acquirer
type Options struct {
	// Timeout bounds each provider call. Zero means no deadline beyond ctx.
	Timeout time.Duration
	// Concurrency bounds in-flight acquisitions in AcquireAll
	Concurrency int
	// Sink is optional
	Sink AssetSink
}

// Acquirer resolves providers from a registry and invokes them per scene
type Acquirer struct {
	registry    *providers.Registry
	timeout     time.Duration
	concurrency int
	sink        AssetSink
}

// New creates an Acquirer over registry
func New(registry *providers.Registry, opts Options) *Acquirer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Acquirer{
		registry:    registry,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		sink:        opts.Sink,
	}
}

// Acquire obtains the visual asset at position within the scene at sceneIndex.
// Only registry lookups fail; provider failures return an asset with an empty Path.
func (a *Acquirer) Acquire(ctx context.Context, assembly *types.Assembly, sceneIndex, position int, description string) (types.VisualAsset, error) {
	provider, err := a.registry.Resolve(assembly.Mode, assembly.Provider)
	if err != nil {
		return types.VisualAsset{}, err
	}
	asset := a.run(ctx, provider, assembly, sceneIndex, position, description, assembly.Style)
	a.persist(ctx, assembly.ID, asset)
	return asset, nil
}

// AcquireAll fills every scene's assets from descriptions, one list per scene.
// Acquisitions run concurrently but results are stored by scene index.
func (a *Acquirer) AcquireAll(ctx context.Context, assembly *types.Assembly, descriptions [][]string) error {
	if len(descriptions) != len(assembly.Scenes) {
		return fmt.Errorf("got %d description lists for %d scenes", len(descriptions), len(assembly.Scenes))
	}

	// Fail fast on configuration before any work is started
	provider, err := a.registry.Resolve(assembly.Mode, assembly.Provider)
	if err != nil {
		return err
	}

	results := make([][]types.VisualAsset, len(descriptions))
	for i := range descriptions {
		results[i] = make([]types.VisualAsset, len(descriptions[i]))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, descs := range descriptions {
		for j, desc := range descs {
			g.Go(func() error {
				sceneIndex := assembly.Scenes[i].Index
				asset := a.run(gctx, provider, assembly, sceneIndex, j, desc, assembly.Style)
				a.persist(gctx, assembly.ID, asset)
				results[i][j] = asset
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	missing := 0
	for i := range assembly.Scenes {
		assembly.Scenes[i].Assets = results[i]
		for _, asset := range results[i] {
			if asset.Missing() {
				missing++
			}
		}
	}
	log.Printf("Acquired assets for %d scenes of %s (%d missing)", len(assembly.Scenes), assembly.ID, missing)
	return nil
}

// Regenerate re-acquires asset assetIndex of a scene with the mode's default
// provider. The existing asset is kept when the new acquisition fails; the
// returned flag reports whether it was replaced.
func (a *Acquirer) Regenerate(ctx context.Context, assembly *types.Assembly, sceneIndex, assetIndex int, style string) (types.VisualAsset, bool, error) {
	if sceneIndex < 0 || sceneIndex >= len(assembly.Scenes) {
		return types.VisualAsset{}, false, fmt.Errorf("scene %d out of range", sceneIndex)
	}
	scene := &assembly.Scenes[sceneIndex]
	if assetIndex < 0 || assetIndex >= len(scene.Assets) {
		return types.VisualAsset{}, false, fmt.Errorf("asset %d of scene %d out of range", assetIndex, sceneIndex)
	}

	name, err := a.registry.Default(assembly.Mode)
	if err != nil {
		return types.VisualAsset{}, false, err
	}
	provider, err := a.registry.Resolve(assembly.Mode, name)
	if err != nil {
		return types.VisualAsset{}, false, err
	}
	if style == "" {
		style = config.RegenerateStyle
	}

	old := scene.Assets[assetIndex]
	fresh := a.run(ctx, provider, assembly, scene.Index, old.Position, old.Prompt, style)
	if fresh.Missing() {
		return old, false, nil
	}

	scene.Assets[assetIndex] = fresh
	a.persist(ctx, assembly.ID, fresh)
	return fresh, true, nil
}

func (a *Acquirer) run(ctx context.Context, provider providers.VisualProvider, assembly *types.Assembly, sceneIndex, position int, description, style string) types.VisualAsset {
	asset := types.VisualAsset{
		SceneIndex: sceneIndex,
		Position:   position,
		Prompt:     description,
		Provider:   provider.Name(),
		Kind:       types.AssetUnknown,
	}

	if strings.TrimSpace(description) == "" {
		log.Printf("⚠️  scene %d has no visual description, using placeholder", sceneIndex)
		return asset
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	layout := workdir.At(assembly.WorkDir)
	paths, err := provider.Acquire(ctx, providers.Request{
		Query:      description,
		OutputDir:  layout.Images(),
		NamePrefix: workdir.ScenePrefix(sceneIndex),
		Amount:     config.ImagesPerScene,
		Style:      style,
		Title:      assembly.Title,
	})
	if err != nil {
		log.Printf("❌ acquisition failed for scene %d (provider %s, query %q): %v", sceneIndex, provider.Name(), description, err)
		return asset
	}
	if len(paths) == 0 || paths[0] == "" {
		log.Printf("❌ provider %s returned nothing for scene %d (query %q)", provider.Name(), sceneIndex, description)
		return asset
	}

	asset.Path = paths[0]
	asset.Kind = media.Classify(asset.Path)
	return asset
}

func (a *Acquirer) persist(ctx context.Context, assemblyID string, asset types.VisualAsset) {
	if a.sink == nil {
		return
	}
	if err := a.sink.SaveAsset(ctx, assemblyID, asset); err != nil {
		log.Printf("⚠️  failed to persist asset for scene %d of %s: %v", asset.SceneIndex, assemblyID, err)
	}
}
