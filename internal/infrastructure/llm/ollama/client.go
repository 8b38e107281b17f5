package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

// Rewriter produces reformulated query variants for the refinement loop.
type Rewriter struct {
	client *Client
}

func NewRewriter(client *Client) *Rewriter {
	return &Rewriter{client: client}
}

func (r *Rewriter) Rewrite(ctx context.Context, query string, used []string) (string, error) {
	variant, err := r.client.generateText(ctx, buildRewritePrompt(query, used))
	if err != nil {
		return "", wrapTemporaryIfNeeded("rewrite query", err)
	}
	variant = strings.TrimSpace(strings.Trim(strings.TrimSpace(variant), `"`))
	if variant == "" {
		return "", fmt.Errorf("rewrite produced empty variant")
	}
	return variant, nil
}

// Judge asks the model whether the fused candidates suffice to answer the
// query. Any malformed or non-parseable response yields an insufficient
// verdict: on ambiguous judgment the engine must never assume sufficiency.
type Judge struct {
	client *Client
}

func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

func (j *Judge) Judge(ctx context.Context, query string, items []domain.FusedItem) (domain.Verdict, error) {
	raw, err := j.client.generateJSON(ctx, buildJudgePrompt(query, items))
	if err != nil {
		return domain.Verdict{}, wrapTemporaryIfNeeded("judge sufficiency", err)
	}

	var parsed struct {
		Sufficient *bool   `json:"sufficient"`
		Rationale  string  `json:"rationale"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil || parsed.Sufficient == nil {
		return domain.Verdict{
			Sufficient: false,
			Rationale:  "judgment response was not parseable",
		}, nil
	}

	return domain.Verdict{
		Sufficient: *parsed.Sufficient,
		Rationale:  parsed.Rationale,
		Confidence: parsed.Confidence,
	}, nil
}

// Classifier delegates query-type classification to the model. It returns
// the raw label; the router matches it against the closed type set.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) ClassifyQuery(ctx context.Context, query string) (string, error) {
	raw, err := c.client.generateJSON(ctx, buildClassifyPrompt(query))
	if err != nil {
		return "", wrapTemporaryIfNeeded("classify query", err)
	}

	var parsed struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return "", fmt.Errorf("parse classification json: %w", err)
	}
	return parsed.Type, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
