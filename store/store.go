// Package store persists assemblies, their scenes and acquired visual assets.
package store

import (
	"context"
	"errors"
	"time"

	"storyreel/types"
)

// ErrNotFound is returned when an assembly does not exist
var ErrNotFound = errors.New("assembly not found")

// Repository is the persistence collaborator of the pipeline. SaveAsset makes
// a Repository usable as the acquirer's asset sink.
type Repository interface {
	SaveAssembly(ctx context.Context, a *types.Assembly) error
	GetAssembly(ctx context.Context, id string) (*types.Assembly, error)
	SaveAsset(ctx context.Context, assemblyID string, asset types.VisualAsset) error
	UpdateStatus(ctx context.Context, id string, status types.Status, output, outputURI, errMsg string) error
	// ListFinishedBefore returns terminal assemblies last updated before t
	ListFinishedBefore(ctx context.Context, t time.Time) ([]*types.Assembly, error)
}

// placeAsset stores asset in its scene slot, growing the slice when needed
func placeAsset(a *types.Assembly, asset types.VisualAsset) error {
	if asset.SceneIndex < 0 || asset.SceneIndex >= len(a.Scenes) {
		return errors.New("asset scene index out of range")
	}
	scene := &a.Scenes[asset.SceneIndex]
	for len(scene.Assets) <= asset.Position {
		scene.Assets = append(scene.Assets, types.VisualAsset{
			SceneIndex: asset.SceneIndex,
			Position:   len(scene.Assets),
			Kind:       types.AssetUnknown,
		})
	}
	scene.Assets[asset.Position] = asset
	return nil
}
