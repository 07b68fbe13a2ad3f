package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/saldotech/saldo/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no Gemini API key was provided.
var ErrNotConfigured = errors.New("llm_not_configured")

// Client wraps the Gemini API for chat completions and embeddings.
// A client without an API key is still constructed so that callers can
// degrade to rule-based behavior instead of failing at startup.
type Client struct {
	log            *zap.Logger
	api            *genai.Client
	model          string
	embeddingModel string
	embeddingDim   int32
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func New(p Params) (*Client, error) {
	c := &Client{
		log:            p.Log.Named("llm.client"),
		model:          p.Cfg.LLMModel,
		embeddingModel: p.Cfg.EmbeddingModel,
		embeddingDim:   int32(p.Cfg.EmbeddingDimension),
	}

	if !p.Cfg.LLMConfigured() {
		c.log.Warn("llm api key not set, enrichment and embeddings disabled")
		return c, nil
	}

	api, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  p.Cfg.LLMAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.api = api
	return c, nil
}

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Complete sends a single-turn prompt at temperature zero and returns the
// text of the first candidate.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}}
	resp, err := c.api.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// Embed returns one vector per input text, truncated to the configured
// dimensionality.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}

	resp, err := c.api.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](c.embeddingDim),
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

// CheckResult reports the outcome of a connectivity probe against the
// configured model.
type CheckResult struct {
	Configured bool   `json:"configured"`
	OK         bool   `json:"ok"`
	Model      string `json:"model"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Check sends a minimal ping prompt and verifies the model answers.
func (c *Client) Check(ctx context.Context) CheckResult {
	res := CheckResult{Model: c.model}
	if c.api == nil {
		res.Error = "LLM_API_KEY is not set"
		return res
	}

	res.Configured = true
	reply, err := c.Complete(ctx, "Reply with exactly: OK", "Ping")
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Response = strings.TrimSpace(reply)
	res.OK = strings.HasPrefix(strings.ToUpper(res.Response), "OK")
	return res
}
