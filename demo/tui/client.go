package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storyreel/types"
)

// AssemblyClient is a thin HTTP client for the assembly API
type AssemblyClient struct {
	baseURL string
	client  *http.Client
}

// NewAssemblyClient creates a new assembly client
func NewAssemblyClient(baseURL string) *AssemblyClient {
	return &AssemblyClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Submit posts a raw assembly request and returns the new assembly id
func (c *AssemblyClient) Submit(request []byte) (string, error) {
	resp, err := c.client.Post(c.baseURL+"/api/assemblies", "application/json", bytes.NewReader(request))
	if err != nil {
		return "", fmt.Errorf("failed to submit assembly: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return body.ID, fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return body.ID, nil
}

// GetStatus fetches the status of assembly id
func (c *AssemblyClient) GetStatus(id string) (*types.StatusResponse, error) {
	resp, err := c.client.Get(c.baseURL + "/api/assemblies/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var status types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// Regenerate asks for a new first image of scene index
func (c *AssemblyClient) Regenerate(id string, scene int) (bool, error) {
	path := fmt.Sprintf("%s/api/assemblies/%s/scenes/%d/regenerate", c.baseURL, url.PathEscape(id), scene)
	resp, err := c.client.Post(path, "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return false, fmt.Errorf("failed to regenerate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	var body struct {
		Replaced bool `json:"replaced"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Replaced, nil
}
