package generator

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedClient returns the queued results in order, then repeats
// the last one.
type scriptedClient struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	text string
	err  error
}

func (c *scriptedClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	r := c.results[i]
	return r.text, r.err
}

func (c *scriptedClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	c.calls++
	return []byte{1}, "image/png", nil
}

func fastOrchestrator(client Client) *Orchestrator {
	o := NewOrchestrator(client)
	o.parseBase = time.Millisecond
	o.serviceBase = time.Millisecond
	return o
}

func TestGenerateStory_RetriesThenSucceeds(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: newError(ErrServiceUnavailable, markerUnavailable)},
		{err: newError(ErrServiceUnavailable, markerUnavailable)},
		{text: mockStory},
	}}
	o := fastOrchestrator(client)

	doc, err := o.GenerateStory(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if len(doc.Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(doc.Questions))
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestGenerateStory_ParseFailureFailsFast(t *testing.T) {
	// The model answered, but the answer does not follow the story
	// grammar. That is bad content, not a bad transport, so asking
	// again is not allowed: exactly one call, error surfaced.
	client := &scriptedClient{results: []scriptedResult{
		{text: "free-form text with no story structure"},
		{text: mockStory},
	}}
	o := fastOrchestrator(client)

	_, err := o.GenerateStory(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected a parse error, got none")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

func TestGenerateStory_ExhaustsRetries(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: newError(ErrServiceUnavailable, markerUnavailable)},
	}}
	o := fastOrchestrator(client)

	_, err := o.GenerateStory(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
	if KindOf(err) != ErrServiceUnavailable {
		t.Errorf("kind = %q, want %q", KindOf(err), ErrServiceUnavailable)
	}
}

func TestGenerateStory_NonRetryableFailsFast(t *testing.T) {
	for _, kind := range []ErrorKind{ErrInvalidConfiguration, ErrGeographicRestriction} {
		client := &scriptedClient{results: []scriptedResult{
			{err: newError(kind, "nope")},
		}}
		o := fastOrchestrator(client)

		_, err := o.GenerateStory(context.Background(), "prompt")
		if err == nil {
			t.Fatalf("%s: expected error", kind)
		}
		if client.calls != 1 {
			t.Errorf("%s: calls = %d, want 1", kind, client.calls)
		}
		if KindOf(err) != kind {
			t.Errorf("kind = %q, want %q", KindOf(err), kind)
		}
	}
}

func TestGenerateStory_ContextCanceledDuringBackoff(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: newError(ErrServiceUnavailable, markerUnavailable)},
	}}
	o := NewOrchestrator(client) // real 2s backoff

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.GenerateStory(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

func TestBackoff_LinearAndKindDependent(t *testing.T) {
	o := NewOrchestrator(&scriptedClient{results: []scriptedResult{{text: mockStory}}})

	cases := []struct {
		err     error
		attempt int
		want    time.Duration
	}{
		{newError(ErrMalformedResponse, markerMalformed), 1, 1000 * time.Millisecond},
		{newError(ErrMalformedResponse, markerMalformed), 2, 2000 * time.Millisecond},
		{newError(ErrServiceUnavailable, markerUnavailable), 1, 2000 * time.Millisecond},
		{newError(ErrServiceUnavailable, markerUnavailable), 2, 4000 * time.Millisecond},
		{newError(ErrNetworkFailure, "request failed"), 1, 2000 * time.Millisecond},
	}
	for _, c := range cases {
		if got := o.backoff(c.err, c.attempt); got != c.want {
			t.Errorf("backoff(%v, %d) = %v, want %v", c.err, c.attempt, got, c.want)
		}
	}
}

func TestGenerateImage_NoRetry(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{{text: mockStory}}}
	o := fastOrchestrator(client)

	_, _, err := o.GenerateImage(context.Background(), "a kite")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

func TestRetryable_Classification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{newError(ErrServiceUnavailable, markerUnavailable), true},
		{newError(ErrMalformedResponse, markerMalformed), true},
		{newError(ErrNetworkFailure, "request failed"), true},
		{newError(ErrInvalidConfiguration, "bad key"), false},
		{newError(ErrGeographicRestriction, "blocked"), false},
		{errors.New("wrapped: " + markerUnavailable), true},
		{errors.New("wrapped: " + markerMalformed), true},
		{errors.New("something else entirely"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
