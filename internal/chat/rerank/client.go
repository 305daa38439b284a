// internal/chat/rerank/client.go
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"commerce-chat/internal/common/httpx"
	"commerce-chat/internal/common/logger"
	"commerce-chat/internal/models"
)

var ErrRerankFailed = errors.New("RERANK_FAILED")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client scores knowledge candidates against the original question using an
// external cross-encoder rerank endpoint.
type Client struct {
	config     Config
	httpClient *httpx.Client
	logger     logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: httpx.NewClient(timeout),
		logger:     log,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank returns the sources ordered by cross-encoder relevance, best first,
// with Score replaced by the rerank score. Callers treat any error as "keep
// the original order".
func (c *Client) Rerank(ctx context.Context, query string, sources []models.KnowledgeSource) ([]models.KnowledgeSource, error) {
	if len(sources) < 2 {
		return sources, nil
	}

	docs := make([]string, len(sources))
	for i, src := range sources {
		docs[i] = src.Title + "\n" + src.Content
	}

	body, err := json.Marshal(rerankRequest{Model: c.config.Model, Query: query, Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankFailed, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.config.BaseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRerankFailed, resp.StatusCode)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankFailed, err)
	}

	type scored struct {
		src   models.KnowledgeSource
		score float64
	}
	ranked := make([]scored, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(sources) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrRerankFailed, r.Index)
		}
		src := sources[r.Index]
		src.Score = r.RelevanceScore
		ranked = append(ranked, scored{src: src, score: r.RelevanceScore})
	}
	if len(ranked) != len(sources) {
		return nil, fmt.Errorf("%w: got %d results for %d documents", ErrRerankFailed, len(ranked), len(sources))
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]models.KnowledgeSource, len(ranked))
	for i, r := range ranked {
		out[i] = r.src
	}
	return out, nil
}
