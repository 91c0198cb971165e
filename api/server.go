// Package api exposes assembly submission and status over HTTP.
package api

import (
	"context"

	"storyreel/types"

	"github.com/gin-gonic/gin"
)

// AssemblyService is what the HTTP surface needs from the pipeline
type AssemblyService interface {
	Submit(ctx context.Context, req *types.AssemblyRequest) (*types.Assembly, error)
	Status(ctx context.Context, id string) (types.StatusResponse, error)
	RegenerateImage(ctx context.Context, id string, sceneIndex, assetIndex int, style string) (types.VisualAsset, bool, error)
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(svc AssemblyService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterAssemblyRoutes(r, svc)
	RegisterHealthRoutes(r)
	return r
}
