// Package orchestrator is the Fleet Controller's client to the external
// worker-group orchestrator: it reads a group's current target size and
// requests resizes, authenticating with a short-lived service token
//.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/open-climate-tech/firecam/internal/tokens"
)

// Group is the orchestrator's view of one fleet group's worker pool.
type Group struct {
	Name        string `json:"name"`
	TargetSize  int    `json:"targetSize"`
	CurrentSize int    `json:"currentSize"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceID  string
	tokens     *tokens.Manager
}

func NewClient(baseURL, serviceID string, tokenMgr *tokens.Manager) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		serviceID:  serviceID,
		tokens:     tokenMgr,
	}
}

// GetGroup fetches a fleet group's current orchestrator state.
func (c *Client) GetGroup(ctx context.Context, group string) (Group, error) {
	req, err := c.signedRequest(ctx, http.MethodGet, fmt.Sprintf("%s/groups/%s", c.baseURL, group), group, nil)
	if err != nil {
		return Group{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Group{}, fmt.Errorf("orchestrator: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Group{}, fmt.Errorf("orchestrator: unexpected status %d", resp.StatusCode)
	}

	var g Group
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return Group{}, fmt.Errorf("orchestrator: decode response: %w", err)
	}
	return g, nil
}

// Resize requests the orchestrator scale group's worker pool to size.
func (c *Client) Resize(ctx context.Context, group string, size int) error {
	body, err := json.Marshal(map[string]int{"size": size})
	if err != nil {
		return fmt.Errorf("orchestrator: encode resize body: %w", err)
	}

	req, err := c.signedRequest(ctx, http.MethodPost, fmt.Sprintf("%s/groups/%s/resize", c.baseURL, group), group, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("orchestrator: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("orchestrator: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) signedRequest(ctx context.Context, method, url, group string, body *bytes.Reader) (*http.Request, error) {
	token, err := c.tokens.GenerateServiceToken(c.serviceID, group)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: sign request: %w", err)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}
