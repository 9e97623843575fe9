package provider

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"memchat/internal/domain"
)

const (
	GeminiName           = "gemini"
	GeminiDefaultBaseURL = "https://generativelanguage.googleapis.com"
	GeminiAPIVersion     = "v1beta"
	GeminiDefaultModel   = "gemini-1.5-flash-8b"
)

// Gemini calls the Google Generative Language generateContent endpoint.
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

func (g *Gemini) Name() string        { return GeminiName }
func (g *Gemini) Model() string       { return g.model }
func (g *Gemini) HasCredential() bool { return g.apiKey != "" }

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate. A blocked prompt or a candidate without text yields "".
func (g *Gemini) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			TopK:             cfg.TopK,
			MaxOutputTokens:  cfg.MaxOutputTokens,
			ResponseMimeType: "text/plain",
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint, err := g.endpoint()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(GeminiName, resp)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		g.logger.Warn("gemini blocked the prompt", "reason", out.PromptFeedback.BlockReason)
		return "", nil
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if out.UsageMetadata != nil {
		g.logger.Debug("gemini usage",
			"model", g.model,
			"prompt_tokens", out.UsageMetadata.PromptTokenCount,
			"output_tokens", out.UsageMetadata.CandidatesTokenCount,
			"finish_reason", out.Candidates[0].FinishReason,
		)
	}
	return text.String(), nil
}

func (g *Gemini) endpoint() (string, error) {
	base, err := url.Parse(g.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/" + GeminiAPIVersion + "/models/" + url.PathEscape(g.model) + ":generateContent"
	return base.String(), nil
}
