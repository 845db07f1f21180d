// Package embedding implements the external text-embedding provider used by
// the resource matcher. The provider is best-effort: callers fall back to
// token-overlap similarity when it is disabled or failing.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// HTTPProvider calls an OpenAI-compatible /v1/embeddings endpoint. It
// satisfies the matcher's Embedder port.
type HTTPProvider struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  logging.Logger
}

// New constructs a provider from config. It returns nil when the provider is
// disabled or has no base URL: a nil Embedder tells the matcher to use its
// token-overlap fallback.
func New(cfg config.EmbeddingConfig, logger logging.Logger) *HTTPProvider {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("embedding"),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "failed to encode embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "failed to build embedding request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded amount of the error body for the log line.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("embedding provider returned non-200",
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(msg)),
		)
		return nil, errors.New(errors.CodeEmbeddingFailed,
			fmt.Sprintf("embedding provider returned status %d", resp.StatusCode))
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "failed to decode embedding response")
	}
	if len(decoded.Data) != len(texts) {
		return nil, errors.Newf(errors.CodeEmbeddingFailed,
			"embedding provider returned %d vectors for %d inputs", len(decoded.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range decoded.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, errors.Newf(errors.CodeEmbeddingFailed, "embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
