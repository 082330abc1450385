package centrality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/relicore/chrongraph/pkg/driver"
)

// RemoteClient computes centrality scores via an external compute service
// instead of the in-process algorithms, for graphs too large for a single
// process. CalculateWithDelegation falls back to in-process computation if a
// RemoteClient is configured but the call fails.
type RemoteClient interface {
	CalculateRemote(ctx context.Context, opts Options) (map[string]*Scores, error)
}

// HTTPRemoteClient calls an external centrality service over HTTP, posting
// the calculation options as JSON and expecting a JSON map of node UUID to
// Scores in response.
type HTTPRemoteClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPRemoteClient creates a client targeting baseURL with a 30s timeout.
func NewHTTPRemoteClient(baseURL string) *HTTPRemoteClient {
	return &HTTPRemoteClient{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

type remoteRequest struct {
	GroupID               string  `json:"group_id,omitempty"`
	DampingFactor         float64 `json:"damping_factor"`
	Iterations            int     `json:"iterations"`
	DegreeDirection       string  `json:"degree_direction"`
	BetweennessSampleSize int     `json:"betweenness_sample_size"`
	BetweennessMaxDepth   int     `json:"betweenness_max_depth"`
}

// CalculateRemote posts opts to BaseURL+"/centrality/calculate" and decodes
// the response into per-node Scores.
func (c *HTTPRemoteClient) CalculateRemote(ctx context.Context, opts Options) (map[string]*Scores, error) {
	opts = opts.withDefaults()

	body, err := json.Marshal(remoteRequest{
		GroupID:               opts.GroupID,
		DampingFactor:         opts.DampingFactor,
		Iterations:            opts.Iterations,
		DegreeDirection:       string(opts.DegreeDirection),
		BetweennessSampleSize: opts.BetweennessSampleSize,
		BetweennessMaxDepth:   opts.BetweennessMaxDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding remote centrality request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/centrality/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building remote centrality request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling remote centrality service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote centrality service returned status %d", resp.StatusCode)
	}

	var scores map[string]*Scores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decoding remote centrality response: %w", err)
	}
	return scores, nil
}

// CalculateWithDelegation tries remote first when remote is non-nil,
// falling back to in-process Calculate if the remote call errors. Pass a
// nil remote to always compute in-process.
func CalculateWithDelegation(ctx context.Context, d driver.GraphDriver, remote RemoteClient, opts Options) (map[string]*Scores, error) {
	if remote != nil {
		if scores, err := remote.CalculateRemote(ctx, opts); err == nil {
			return scores, nil
		}
	}
	return Calculate(ctx, d, opts)
}
