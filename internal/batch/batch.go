package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"call-qa-go/internal/logger"
	"call-qa-go/internal/pipeline"
)

// DefaultConcurrency bounds in-flight pipelines when the caller does not say
// otherwise. The upstream model service and disk are the real bottlenecks.
const DefaultConcurrency = 3

// State is a batch item's lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Input identifies one file to process.
type Input struct {
	ID       string
	Filename string
	Path     string
}

// ProcessFunc runs the per-item pipeline for one input.
type ProcessFunc func(ctx context.Context, in Input) (pipeline.Result, error)

// Item tracks one input across up to two attempts.
type Item struct {
	ID       string           `json:"id"`
	Filename string           `json:"filename"`
	State    State            `json:"state"`
	Attempts int              `json:"attempts"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Report is the final outcome of a batch run.
type Report struct {
	Total          int    `json:"total"`
	SucceededCount int    `json:"succeeded_count"`
	FailedCount    int    `json:"failed_count"`
	Succeeded      []Item `json:"succeeded"`
	Failed         []Item `json:"failed"`
}

// Run processes all inputs with at most limit pipelines in flight, then
// retries every failed item exactly once with the same bound. Two attempts
// per item is the fixed policy; item failures never abort siblings.
func Run(ctx context.Context, inputs []Input, limit int, process ProcessFunc) (Report, error) {
	if len(inputs) == 0 {
		return Report{}, fmt.Errorf("batch has no items to process")
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	log := logger.Component("batch").WithFields(logrus.Fields{
		"total":             len(inputs),
		"concurrency_limit": limit,
	})
	log.Info("batch started")

	items := make([]*Item, len(inputs))
	for i, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}
		items[i] = &Item{ID: id, Filename: in.Filename, State: StatePending}
	}

	runPass(ctx, inputs, items, allIndexes(len(items)), limit, process)

	var retry []int
	for i, it := range items {
		if it.State == StateFailed {
			retry = append(retry, i)
		}
	}
	if len(retry) > 0 {
		log.WithField("retrying", len(retry)).Info("retrying failed items")
		runPass(ctx, inputs, items, retry, limit, process)
	}

	report := Report{Total: len(items), Succeeded: []Item{}, Failed: []Item{}}
	for _, it := range items {
		if it.State == StateSucceeded {
			report.Succeeded = append(report.Succeeded, *it)
		} else {
			report.Failed = append(report.Failed, *it)
		}
	}
	report.SucceededCount = len(report.Succeeded)
	report.FailedCount = len(report.Failed)
	log.WithFields(logrus.Fields{
		"succeeded": report.SucceededCount,
		"failed":    report.FailedCount,
	}).Info("batch finished")
	return report, nil
}

// runPass attempts the given items once each, admitting at most limit at a
// time through a channel semaphore.
func runPass(ctx context.Context, inputs []Input, items []*Item, indexes []int, limit int, process ProcessFunc) {
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, idx := range indexes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			it := items[i]
			it.Attempts++

			res, err := attempt(ctx, inputs[i], process)
			it.Result = &res
			if err != nil {
				it.State = StateFailed
				it.Error = err.Error()
				return
			}
			it.State = StateSucceeded
			it.Error = ""
		}(idx)
	}
	wg.Wait()
}

// attempt isolates one pipeline run; a panic in an item must not take down
// its siblings.
func attempt(ctx context.Context, in Input, process ProcessFunc) (res pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item panicked: %v", r)
			res.Filename = in.Filename
			res.Error = err.Error()
		}
	}()
	return process(ctx, in)
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
