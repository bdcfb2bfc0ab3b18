package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client is the upstream model service: an opaque, fallible collaborator.
type Client interface {
	// GenerateText sends a prompt and returns the model's raw text output.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// Transcribe uploads an audio file and returns the raw transcription
	// output produced for the given prompt.
	Transcribe(ctx context.Context, audioPath, prompt string) (string, error)
}

// UpstreamError marks a failure of the model service itself (network, quota,
// 5xx) as opposed to unusable output.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// retryPolicy is the inner per-call policy: 2 retries, exponential backoff
// starting at 1s and doubling. The batch layer has its own independent
// single-retry pass on top of this.
func retryPolicy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)
}
