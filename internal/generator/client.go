package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client is the capability surface the rest of the application sees.
// Callers never learn which provider backs it.
type Client interface {
	// GenerateText sends a prompt and returns the raw model output.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateImage renders an illustration for the prompt and
	// returns the raw image bytes plus their MIME type.
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider         string // "gemini", "anthropic", or "mock"
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	AnthropicAPIKey  string
	AnthropicModel   string
}

// NewClient builds the provider named in opts. A missing API key is an
// invalid-configuration error, not a panic: the server should start
// and report it per-request.
func NewClient(opts Options) (Client, error) {
	switch opts.Provider {
	case "", "gemini":
		if opts.GeminiAPIKey == "" {
			return nil, newError(ErrInvalidConfiguration, "gemini API key is not set")
		}
		return NewGeminiClient(opts.GeminiAPIKey, opts.GeminiModel, opts.GeminiImageModel), nil
	case "anthropic":
		if opts.AnthropicAPIKey == "" {
			return nil, newError(ErrInvalidConfiguration, "anthropic API key is not set")
		}
		return NewAnthropicClient(opts.AnthropicAPIKey, opts.AnthropicModel), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, newError(ErrInvalidConfiguration, fmt.Sprintf("unknown provider %q", opts.Provider))
	}
}

// ── Gemini ────────────────────────────────────────────

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiImageModel = "imagen-3.0-generate-002"
)

// GeminiClient talks to the Generative Language REST API directly.
type GeminiClient struct {
	apiKey     string
	model      string
	imageModel string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiClient(apiKey, model, imageModel string) *GeminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	if imageModel == "" {
		imageModel = defaultGeminiImageModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		imageModel: imageModel,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	payload := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	body, status, contentType, err := c.post(ctx, url, payload)
	if err != nil {
		return "", err
	}
	if err := classifyGeminiResponse(status, contentType, body); err != nil {
		return "", err
	}

	var resp geminiGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &GenerationError{Kind: ErrMalformedResponse, Message: markerMalformed, Err: err}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", newError(ErrMalformedResponse, markerMalformed+": no candidates")
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", newError(ErrMalformedResponse, markerMalformed+": empty candidate text")
	}
	return text, nil
}

type geminiPredictRequest struct {
	Instances  []geminiPredictInstance `json:"instances"`
	Parameters geminiPredictParams     `json:"parameters"`
}

type geminiPredictInstance struct {
	Prompt string `json:"prompt"`
}

type geminiPredictParams struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio"`
	OutputMimeType string `json:"outputMimeType"`
}

type geminiPredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	url := fmt.Sprintf("%s/models/%s:predict?key=%s", c.baseURL, c.imageModel, c.apiKey)
	payload := geminiPredictRequest{
		Instances: []geminiPredictInstance{{Prompt: prompt}},
		Parameters: geminiPredictParams{
			SampleCount:    1,
			AspectRatio:    "4:3",
			OutputMimeType: "image/png",
		},
	}

	body, status, contentType, err := c.post(ctx, url, payload)
	if err != nil {
		return nil, "", err
	}
	if err := classifyGeminiResponse(status, contentType, body); err != nil {
		return nil, "", err
	}

	var resp geminiPredictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", &GenerationError{Kind: ErrMalformedResponse, Message: markerMalformed, Err: err}
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return nil, "", newError(ErrMalformedResponse, markerMalformed+": no predictions")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, "", &GenerationError{Kind: ErrMalformedResponse, Message: markerMalformed, Err: err}
	}
	mime := resp.Predictions[0].MimeType
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

func (c *GeminiClient) post(ctx context.Context, url string, payload any) ([]byte, int, string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, "", &GenerationError{Kind: ErrInvalidConfiguration, Message: "encoding request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, "", &GenerationError{Kind: ErrInvalidConfiguration, Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", &GenerationError{Kind: ErrNetworkFailure, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, 0, "", &GenerationError{Kind: ErrNetworkFailure, Message: "reading response body", Err: err}
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// classifyGeminiResponse maps an HTTP exchange onto an error kind.
// Geographic blocks arrive as a specific message in an error body and
// are never retried. Gateway statuses mean the service is overloaded.
// An HTML body where JSON was expected is an upstream proxy error
// page, which also reads as temporary unavailability.
func classifyGeminiResponse(status int, contentType string, body []byte) error {
	if strings.Contains(string(body), markerGeoBlocked) {
		return &GenerationError{
			Kind:       ErrGeographicRestriction,
			Message:    "generation service is not available in this region",
			StatusCode: status,
		}
	}

	if status >= 200 && status < 300 {
		if !strings.Contains(contentType, "application/json") {
			if strings.Contains(contentType, "text/html") {
				return &GenerationError{Kind: ErrServiceUnavailable, Message: markerUnavailable, StatusCode: status}
			}
			return &GenerationError{Kind: ErrMalformedResponse, Message: markerMalformed, StatusCode: status}
		}
		return nil
	}

	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &GenerationError{Kind: ErrServiceUnavailable, Message: markerUnavailable, StatusCode: status}
	default:
		return &GenerationError{
			Kind:       ErrInvalidConfiguration,
			Message:    fmt.Sprintf("generation service rejected the request: %s", truncate(string(body), 200)),
			StatusCode: status,
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ── Anthropic ─────────────────────────────────────────

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicClient is the alternate text provider. It has no image
// capability; image requests fail as invalid configuration so the
// handler reports them without retrying.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: &client, model: model}
}

func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", newError(ErrMalformedResponse, markerMalformed+": empty message content")
	}
	return text, nil
}

func (c *AnthropicClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	return nil, "", newError(ErrInvalidConfiguration, "anthropic provider does not support image generation")
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusBadGateway,
			apiErr.StatusCode == http.StatusServiceUnavailable,
			apiErr.StatusCode == http.StatusGatewayTimeout,
			apiErr.StatusCode == 529: // provider overloaded
			return &GenerationError{Kind: ErrServiceUnavailable, Message: markerUnavailable, StatusCode: apiErr.StatusCode, Err: err}
		default:
			return &GenerationError{Kind: ErrInvalidConfiguration, Message: "generation service rejected the request", StatusCode: apiErr.StatusCode, Err: err}
		}
	}
	return &GenerationError{Kind: ErrNetworkFailure, Message: "request failed", Err: err}
}

// ── Mock ──────────────────────────────────────────────

// MockClient serves a canned, well-formed story for local development
// so the whole quiz flow works without an API key.
type MockClient struct{}

func NewMockClient() *MockClient {
	log.Println("[generator] using mock provider, responses are canned")
	return &MockClient{}
}

const mockStory = `## The Lost Kite

Tom has a red kite. He plays in the park with his dog. The wind takes
the kite away. Tom is sad. His friend Anna sees the kite in a tree.
They climb and get the kite. Tom is happy again. They play together
all day under the warm sun.

Questions:
1. What color is the kite?
A. Red
B. Blue
C. Green
Answer: A
2. Where does Tom play?
A. At school
B. In the park
C. At home
Answer: B
3. Who finds the kite?
A. Tom
B. The dog
C. Anna
Answer: C

ImagePrompt: A vibrant cartoon of a boy and a girl rescuing a bright red kite from a tall green tree in a sunny park.`

// 1x1 transparent PNG.
var mockImage = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func (c *MockClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return mockStory, nil
}

func (c *MockClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	return mockImage, "image/png", nil
}
