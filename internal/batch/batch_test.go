package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"call-qa-go/internal/pipeline"
)

func inputs(n int) []Input {
	out := make([]Input, n)
	for i := range out {
		out[i] = Input{Filename: fmt.Sprintf("call-%d.wav", i)}
	}
	return out
}

func TestRun_EmptyBatch(t *testing.T) {
	_, err := Run(context.Background(), nil, 3, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no items")
}

func TestRun_AllSucceedFirstPass(t *testing.T) {
	req := require.New(t)

	report, err := Run(context.Background(), inputs(4), 3, func(ctx context.Context, in Input) (pipeline.Result, error) {
		return pipeline.Result{Filename: in.Filename}, nil
	})
	req.NoError(err)
	req.Equal(4, report.Total)
	req.Equal(4, report.SucceededCount)
	req.Equal(0, report.FailedCount)
	for _, it := range report.Succeeded {
		req.Equal(StateSucceeded, it.State)
		req.Equal(1, it.Attempts)
		req.NotEmpty(it.ID)
	}
}

func TestRun_RetryRecoversTransientFailures(t *testing.T) {
	req := require.New(t)

	var mu sync.Mutex
	calls := map[string]int{}

	flaky := map[string]bool{"call-1.wav": true, "call-3.wav": true}

	report, err := Run(context.Background(), inputs(5), 3, func(ctx context.Context, in Input) (pipeline.Result, error) {
		mu.Lock()
		calls[in.Filename]++
		n := calls[in.Filename]
		mu.Unlock()
		if flaky[in.Filename] && n == 1 {
			return pipeline.Result{}, fmt.Errorf("upstream timeout")
		}
		return pipeline.Result{Filename: in.Filename}, nil
	})
	req.NoError(err)
	req.Equal(5, report.SucceededCount)
	req.Equal(0, report.FailedCount)

	byName := map[string]Item{}
	for _, it := range report.Succeeded {
		byName[it.Filename] = it
	}
	req.Equal(2, byName["call-1.wav"].Attempts)
	req.Equal(2, byName["call-3.wav"].Attempts)
	req.Equal(1, byName["call-0.wav"].Attempts)
	req.Empty(byName["call-1.wav"].Error)
}

func TestRun_PersistentFailureStopsAtTwoAttempts(t *testing.T) {
	req := require.New(t)

	var mu sync.Mutex
	calls := map[string]int{}

	report, err := Run(context.Background(), inputs(3), 2, func(ctx context.Context, in Input) (pipeline.Result, error) {
		mu.Lock()
		calls[in.Filename]++
		mu.Unlock()
		if in.Filename == "call-2.wav" {
			return pipeline.Result{}, fmt.Errorf("corrupt audio header")
		}
		return pipeline.Result{Filename: in.Filename}, nil
	})
	req.NoError(err)
	req.Equal(2, report.SucceededCount)
	req.Equal(1, report.FailedCount)

	failed := report.Failed[0]
	req.Equal("call-2.wav", failed.Filename)
	req.Equal(StateFailed, failed.State)
	req.Equal(2, failed.Attempts)
	req.Contains(failed.Error, "corrupt audio header")
	req.Equal(2, calls["call-2.wav"])
}

func TestRun_PanicIsolatedToItem(t *testing.T) {
	req := require.New(t)

	report, err := Run(context.Background(), inputs(3), 3, func(ctx context.Context, in Input) (pipeline.Result, error) {
		if in.Filename == "call-1.wav" {
			panic("nil transcript")
		}
		return pipeline.Result{Filename: in.Filename}, nil
	})
	req.NoError(err)
	req.Equal(2, report.SucceededCount)
	req.Equal(1, report.FailedCount)
	req.Contains(report.Failed[0].Error, "item panicked")
	req.Contains(report.Failed[0].Error, "nil transcript")
}

func TestRun_ConcurrencyBound(t *testing.T) {
	req := require.New(t)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	_, err := Run(context.Background(), inputs(6), 1, func(ctx context.Context, in Input) (pipeline.Result, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		// stay in flight long enough for an unbounded sibling to overlap
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return pipeline.Result{Filename: in.Filename}, nil
	})
	req.NoError(err)
	req.Equal(1, maxInFlight)
}

func TestRun_KeepsCallerIDs(t *testing.T) {
	req := require.New(t)

	in := []Input{{ID: "fixed-id", Filename: "call.wav"}}
	report, err := Run(context.Background(), in, 0, func(ctx context.Context, _ Input) (pipeline.Result, error) {
		return pipeline.Result{}, nil
	})
	req.NoError(err)
	req.Equal("fixed-id", report.Succeeded[0].ID)
}
