package generator

import (
	"context"
	"log"
	"time"
)

const (
	// maxRetries is the number of re-attempts after the first call,
	// so a request is tried at most maxRetries+1 times.
	maxRetries = 2

	parseRetryBase   = 1000 * time.Millisecond
	serviceRetryBase = 2000 * time.Millisecond
)

// Orchestrator wraps a Client with retry semantics. A malformed
// service response is retried on a short backoff; service and network
// failures get a longer one. Configuration and geographic errors are
// returned immediately.
type Orchestrator struct {
	client     Client
	maxRetries int

	parseBase   time.Duration
	serviceBase time.Duration
}

func NewOrchestrator(client Client) *Orchestrator {
	return &Orchestrator{
		client:      client,
		maxRetries:  maxRetries,
		parseBase:   parseRetryBase,
		serviceBase: serviceRetryBase,
	}
}

// GenerateStory calls the underlying client and parses the result,
// re-attempting retryable transport failures with linear backoff:
// delay = base x attempt number. A story that fails the grammar is
// NOT retried: the content, not the transport, is malformed, and the
// caller surfaces it so the user can regenerate.
func (o *Orchestrator) GenerateStory(ctx context.Context, prompt string) (*ParsedDocument, error) {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			delay := o.backoff(lastErr, attempt)
			log.Printf("[generator] retrying in %v (attempt %d/%d): %v", delay, attempt+1, o.maxRetries+1, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		text, err := o.client.GenerateText(ctx, prompt)
		if err != nil {
			if !Retryable(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		return Parse(text)
	}
	return nil, lastErr
}

// GenerateImage is a passthrough: illustrations are decorative and
// the client can simply ask again, so a failed render is not retried.
func (o *Orchestrator) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	return o.client.GenerateImage(ctx, prompt)
}

func (o *Orchestrator) backoff(err error, attempt int) time.Duration {
	base := o.serviceBase
	if KindOf(err) == ErrMalformedResponse {
		base = o.parseBase
	}
	return base * time.Duration(attempt)
}
