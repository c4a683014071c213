package generator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func geminiTestClient(handler http.HandlerFunc) (*GeminiClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewGeminiClient("test-key", "", "")
	c.baseURL = srv.URL
	return c, srv
}

func TestGeminiGenerateText_Success(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"## A Story\n\nhello"}]}}]}`))
	})
	defer srv.Close()

	text, err := c.GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "## A Story\n\nhello" {
		t.Errorf("text = %q", text)
	}
}

func TestGeminiGenerateText_GatewayStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := c.GenerateText(context.Background(), "prompt")
		srv.Close()
		if KindOf(err) != ErrServiceUnavailable {
			t.Errorf("status %d: kind = %q, want %q", status, KindOf(err), ErrServiceUnavailable)
		}
	}
}

func TestGeminiGenerateText_GeographicBlock(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"User location is not supported for the API use."}}`))
	})
	defer srv.Close()

	_, err := c.GenerateText(context.Background(), "prompt")
	if KindOf(err) != ErrGeographicRestriction {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrGeographicRestriction)
	}
	if Retryable(err) {
		t.Error("geographic restriction must not be retryable")
	}
}

func TestGeminiGenerateText_OtherClientError(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	})
	defer srv.Close()

	_, err := c.GenerateText(context.Background(), "prompt")
	if KindOf(err) != ErrInvalidConfiguration {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrInvalidConfiguration)
	}
}

func TestGeminiGenerateText_HTMLErrorPage(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>upstream proxy error</body></html>"))
	})
	defer srv.Close()

	_, err := c.GenerateText(context.Background(), "prompt")
	if KindOf(err) != ErrServiceUnavailable {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrServiceUnavailable)
	}
}

func TestGeminiGenerateText_EmptyCandidates(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})
	defer srv.Close()

	_, err := c.GenerateText(context.Background(), "prompt")
	if KindOf(err) != ErrMalformedResponse {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrMalformedResponse)
	}
	if !Retryable(err) {
		t.Error("malformed response should be retryable")
	}
}

func TestGeminiGenerateText_NetworkFailure(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // server already gone

	_, err := c.GenerateText(context.Background(), "prompt")
	if KindOf(err) != ErrNetworkFailure {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrNetworkFailure)
	}
	if !Retryable(err) {
		t.Error("network failure should be retryable")
	}
}

func TestGeminiGenerateImage_Success(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// base64 of "png-bytes"
		w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"cG5nLWJ5dGVz","mimeType":"image/png"}]}`))
	})
	defer srv.Close()

	data, mime, err := c.GenerateImage(context.Background(), "a kite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("data = %q", data)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q", mime)
	}
}

func TestGeminiGenerateImage_NoPredictions(t *testing.T) {
	c, srv := geminiTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions":[]}`))
	})
	defer srv.Close()

	_, _, err := c.GenerateImage(context.Background(), "a kite")
	if KindOf(err) != ErrMalformedResponse {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrMalformedResponse)
	}
}

func TestNewClient_MissingKeys(t *testing.T) {
	if _, err := NewClient(Options{Provider: "gemini"}); KindOf(err) != ErrInvalidConfiguration {
		t.Errorf("gemini without key: kind = %q", KindOf(err))
	}
	if _, err := NewClient(Options{Provider: "anthropic"}); KindOf(err) != ErrInvalidConfiguration {
		t.Errorf("anthropic without key: kind = %q", KindOf(err))
	}
	if _, err := NewClient(Options{Provider: "carrier-pigeon"}); KindOf(err) != ErrInvalidConfiguration {
		t.Errorf("unknown provider: kind = %q", KindOf(err))
	}
}

func TestMockClient_OutputParses(t *testing.T) {
	c := NewMockClient()
	text, err := c.GenerateText(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := Parse(text)
	if err != nil {
		t.Fatalf("mock output must parse cleanly: %v", err)
	}
	if len(doc.Questions) == 0 {
		t.Error("mock output has no questions")
	}
	if doc.Story.ImagePrompt == "" {
		t.Error("mock output has no image prompt")
	}
}
