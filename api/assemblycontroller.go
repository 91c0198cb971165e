package api

import (
	"errors"
	"net/http"
	"strconv"

	"storyreel/pipeline"
	"storyreel/providers"
	"storyreel/store"
	"storyreel/types"

	"github.com/gin-gonic/gin"
)

// RegisterAssemblyRoutes registers assembly endpoints.
func RegisterAssemblyRoutes(r *gin.Engine, svc AssemblyService) {
	h := &assemblyHandler{svc: svc}
	g := r.Group("/api/assemblies")
	g.POST("", h.submit)
	g.GET("/:id", h.status)
	g.POST("/:id/scenes/:index/regenerate", h.regenerate)
}

type assemblyHandler struct {
	svc AssemblyService
}

// SubmitResponse is returned when an assembly is accepted
type SubmitResponse struct {
	ID     string       `json:"id"`
	Status types.Status `json:"status"`
	Scenes int          `json:"scenes"`
}

// RegenerateRequest selects the asset to regenerate; both fields are optional
type RegenerateRequest struct {
	Asset int    `json:"asset"`
	Style string `json:"style"`
}

// RegenerateResponse reports the asset now in place
type RegenerateResponse struct {
	Replaced bool              `json:"replaced"`
	Asset    types.VisualAsset `json:"asset"`
}

// submit accepts an assembly request and starts it asynchronously.
// Returns 202 Accepted with the assembly id.
func (h *assemblyHandler) submit(c *gin.Context) {
	var req types.AssemblyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload", "details": err.Error()})
		return
	}

	a, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		body := gin.H{"error": err.Error()}
		if a != nil {
			// recorded but rejected, e.g. an unsupported script
			body["id"] = a.ID
			body["status"] = a.Status
			c.JSON(http.StatusUnprocessableEntity, body)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{ID: a.ID, Status: a.Status, Scenes: len(a.Scenes)})
}

func (h *assemblyHandler) status(c *gin.Context) {
	resp, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *assemblyHandler) regenerate(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scene index must be a number"})
		return
	}

	var req RegenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload", "details": err.Error()})
			return
		}
	}

	asset, replaced, err := h.svc.RegenerateImage(c.Request.Context(), c.Param("id"), index, req.Asset, req.Style)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RegenerateResponse{Replaced: replaced, Asset: asset})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, providers.ErrUnknownMode), errors.Is(err, providers.ErrUnknownProvider):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
