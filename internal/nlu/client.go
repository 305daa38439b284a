// Package nlu wraps the external GenAI service: message classification,
// text embedding and reply synthesis. The classifier's JSON is validated
// against a strict schema at this boundary; nothing unchecked reaches the
// decision tables downstream.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"commerce-chat/internal/chat/intent"
	"commerce-chat/internal/common/logger"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrClassifierFailed  = errors.New("CLASSIFIER_FAILED")
	ErrClassifierTimeout = errors.New("CLASSIFIER_TIMEOUT")
	ErrEmbeddingFailed   = errors.New("EMBEDDING_FAILED")
	ErrSynthesisFailed   = errors.New("SYNTHESIS_FAILED")
	ErrInvalidClassifier = errors.New("CLASSIFIER_SCHEMA_VIOLATION")
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
	schema *gojsonschema.Schema
}

func NewClient(config *Config, log logger.Logger) (*Client, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(classifierSchema))
	if err != nil {
		return nil, fmt.Errorf("compile classifier schema: %w", err)
	}
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"stage": "nlu",
		}),
		schema: schema,
	}, nil
}

// Classify sends the message to the classifier and returns its validated
// output. Callers degrade to a default intent on error; this method never
// invents one.
func (c *Client) Classify(ctx context.Context, message, locale string) (intent.ClassifierOutput, error) {
	var out intent.ClassifierOutput

	body, err := c.post(ctx, "/v1/classify", map[string]interface{}{
		"message": message,
		"locale":  locale,
	}, ErrClassifierFailed, ErrClassifierTimeout)
	if err != nil {
		return out, err
	}

	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidClassifier, err)
	}
	if !result.Valid() {
		return out, fmt.Errorf("%w: %v", ErrInvalidClassifier, result.Errors())
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: decode error: %v", ErrClassifierFailed, err)
	}

	c.logger.Info("message classified", map[string]interface{}{
		"intent":       out.Intent,
		"showProducts": out.ShowProducts,
		"language":     out.Language,
	})

	return out, nil
}

// Embed converts text into a similarity-search vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := c.post(ctx, "/v1/embed", map[string]interface{}{
		"text": text,
	}, ErrEmbeddingFailed, ErrEmbeddingFailed)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingFailed)
	}
	return resp.Embedding, nil
}

// SynthesisRequest carries the retrieval results the reply should describe.
type SynthesisRequest struct {
	Message        string                   `json:"message"`
	Locale         string                   `json:"locale"`
	Intent         string                   `json:"intent"`
	Products       []map[string]interface{} `json:"products,omitempty"`
	KnowledgeTexts []string                 `json:"knowledgeTexts,omitempty"`
}

// SynthesisResult is the generated free-text reply plus companions.
type SynthesisResult struct {
	Reply        string   `json:"reply"`
	CallToAction string   `json:"callToAction"`
	FollowUps    []string `json:"followUps"`
}

// Synthesize generates the natural-language reply. The consistency policy
// downstream owns correcting it against what retrieval actually found.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (SynthesisResult, error) {
	var out SynthesisResult

	body, err := c.post(ctx, "/v1/synthesize", req, ErrSynthesisFailed, ErrSynthesisFailed)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: decode error: %v", ErrSynthesisFailed, err)
	}
	return out, nil
}

// post runs the request with bounded retries and exponential backoff,
// returning the raw response body.
func (c *Client) post(ctx context.Context, path string, payload interface{}, failErr, timeoutErr error) ([]byte, error) {
	body, _ := json.Marshal(payload)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, timeoutErr
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", failErr, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, timeoutErr
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutErr
		}
		return nil, fmt.Errorf("%w: %v", failErr, lastErr)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no successful response after retries", failErr)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: read body: %v", failErr, err)
	}
	return buf.Bytes(), nil
}
