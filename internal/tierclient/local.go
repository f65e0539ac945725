package tierclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Jmi2020/KITT-sub006/internal/router"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// LocalConfig configures the local offline tier client.
type LocalConfig struct {
	// Endpoint is the base URL of the ollama-compatible local server,
	// e.g. http://127.0.0.1:11434.
	Endpoint string
	// Model is the local model name.
	Model string
	// Timeout bounds each generate call. Defaults to 2 minutes.
	Timeout time.Duration
}

// LocalClient dispatches to an ollama-compatible local generate endpoint.
// Local dispatches always report zero actual cost.
type LocalClient struct {
	endpoint string
	model    string
	http     *http.Client
}

// generateRequest is the ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the subset of the /api/generate response we consume.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewLocalClient creates a client for the local tier.
func NewLocalClient(cfg LocalConfig) (*LocalClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("local tier client requires an endpoint")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("local tier client requires a model name")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &LocalClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Dispatch implements router.TierClient.
func (c *LocalClient) Dispatch(ctx context.Context, req *models.Request, tier models.Tier) (*router.DispatchResult, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: req.Payload,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tier %s dispatch: %w", tier.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tier %s dispatch: local server returned %s", tier.ID, resp.Status)
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}

	return &router.DispatchResult{
		Payload:       generated.Response,
		ActualCostUSD: 0,
	}, nil
}
