package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyreel/pipeline"
	"storyreel/store"
	"storyreel/types"

	"github.com/gin-gonic/gin"
)

type fakeService struct {
	submitted  *types.AssemblyRequest
	submitErr  error
	rejected   bool
	regenerate struct {
		id           string
		scene, asset int
		style        string
	}
}

func (f *fakeService) Submit(_ context.Context, req *types.AssemblyRequest) (*types.Assembly, error) {
	f.submitted = req
	if f.rejected {
		return &types.Assembly{ID: "a1", Status: types.StatusPending}, errors.New("script rejected")
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &types.Assembly{ID: "a1", Status: types.StatusPending, Scenes: types.NewScenes([]string{"a", "b"})}, nil
}

func (f *fakeService) Status(_ context.Context, id string) (types.StatusResponse, error) {
	if id != "a1" {
		return types.StatusResponse{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return types.StatusResponse{ID: "a1", Status: types.StatusProcessing, Scenes: 2, Logs: []types.LogEntry{{Message: "Rendering"}}}, nil
}

func (f *fakeService) RegenerateImage(_ context.Context, id string, scene, asset int, style string) (types.VisualAsset, bool, error) {
	f.regenerate.id, f.regenerate.scene, f.regenerate.asset, f.regenerate.style = id, scene, asset, style
	return types.VisualAsset{SceneIndex: scene, Position: asset, Path: "new.png"}, true, nil
}

func serve(t *testing.T, svc AssemblyService, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := NewRouter(svc)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name     string
		svc      *fakeService
		body     string
		wantCode int
	}{
		{name: "accepted", svc: &fakeService{}, body: `{"title":"Tides","script":{"scenes":[]},"images":"AI"}`, wantCode: http.StatusAccepted},
		{name: "bad json", svc: &fakeService{}, body: `{"title":`, wantCode: http.StatusBadRequest},
		{name: "invalid request", svc: &fakeService{submitErr: errors.New("script is required")}, body: `{}`, wantCode: http.StatusBadRequest},
		{name: "duplicate id", svc: &fakeService{submitErr: fmt.Errorf("%w: a1", pipeline.ErrExists)}, body: `{}`, wantCode: http.StatusConflict},
		{name: "rejected script", svc: &fakeService{rejected: true}, body: `{"script":[]}`, wantCode: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.svc, http.MethodPost, "/api/assemblies", []byte(tt.body))
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}

	svc := &fakeService{}
	w := serve(t, svc, http.MethodPost, "/api/assemblies", []byte(`{"title":"Tides","script":{"scenes":[]},"images":"AI"}`))
	var resp SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "a1" || resp.Scenes != 2 || resp.Status != types.StatusPending {
		t.Errorf("unexpected response %+v", resp)
	}
	if svc.submitted.Images != "AI" || string(svc.submitted.Script) != `{"scenes":[]}` {
		t.Errorf("request not passed through: %+v", svc.submitted)
	}
}

func TestStatus(t *testing.T) {
	w := serve(t, &fakeService{}, http.MethodGet, "/api/assemblies/a1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var resp types.StatusResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != types.StatusProcessing || len(resp.Logs) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}

	w = serve(t, &fakeService{}, http.MethodGet, "/api/assemblies/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing assembly code = %d", w.Code)
	}
}

func TestRegenerate(t *testing.T) {
	svc := &fakeService{}
	w := serve(t, svc, http.MethodPost, "/api/assemblies/a1/scenes/2/regenerate", []byte(`{"asset":1,"style":"natural"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d (%s)", w.Code, w.Body.String())
	}
	if svc.regenerate.id != "a1" || svc.regenerate.scene != 2 || svc.regenerate.asset != 1 || svc.regenerate.style != "natural" {
		t.Errorf("unexpected call %+v", svc.regenerate)
	}
	var resp RegenerateResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Replaced || resp.Asset.Path != "new.png" {
		t.Errorf("unexpected response %+v", resp)
	}

	w = serve(t, svc, http.MethodPost, "/api/assemblies/a1/scenes/x/regenerate", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad index code = %d", w.Code)
	}

	w = serve(t, svc, http.MethodPost, "/api/assemblies/a1/scenes/0/regenerate", nil)
	if w.Code != http.StatusOK || svc.regenerate.asset != 0 || svc.regenerate.style != "" {
		t.Errorf("empty body: code=%d call=%+v", w.Code, svc.regenerate)
	}
}

func TestHealth(t *testing.T) {
	w := serve(t, &fakeService{}, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
}
