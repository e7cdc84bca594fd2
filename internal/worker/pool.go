// Package worker creates batches of tasks against the task service with a
// bounded number of requests in flight.
package worker

import (
	"context"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
)

// Creator is the part of the task service a pool needs.
type Creator interface {
	CreateTask(ctx context.Context, d board.Draft) error
}

// Result holds the outcome of a single create.
type Result struct {
	Index    int // position in the input batch
	Draft    board.Draft
	Duration time.Duration
	Err      error
}

// Pool manages parallel task creation.
type Pool struct {
	svc        Creator
	maxWorkers int
	log        *log.Logger
}

// NewPool creates a pool that keeps at most maxWorkers requests in flight.
func NewPool(svc Creator, maxWorkers int, logger *log.Logger) *Pool {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{svc: svc, maxWorkers: maxWorkers, log: logger}
}

// Run creates every draft and returns one result per draft, in input
// order. Drafts not started before ctx is cancelled fail with ctx.Err().
func (p *Pool) Run(ctx context.Context, drafts []board.Draft) []Result {
	if p.maxWorkers <= 1 || len(drafts) <= 1 {
		return p.runSequential(ctx, drafts)
	}
	return p.runParallel(ctx, drafts)
}

func (p *Pool) runSequential(ctx context.Context, drafts []board.Draft) []Result {
	results := make([]Result, len(drafts))
	for i, d := range drafts {
		results[i] = p.create(ctx, i, d)
	}
	return results
}

func (p *Pool) runParallel(ctx context.Context, drafts []board.Draft) []Result {
	sem := make(chan struct{}, p.maxWorkers)
	var wg sync.WaitGroup

	results := make([]Result, len(drafts))

	for i, d := range drafts {
		select {
		case sem <- struct{}{}: // Acquire worker slot.
		case <-ctx.Done():
			results[i] = Result{Index: i, Draft: d, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func(idx int, d board.Draft) {
			defer wg.Done()
			defer func() { <-sem }() // Release worker slot.
			results[idx] = p.create(ctx, idx, d)
		}(i, d)
	}

	wg.Wait()
	return results
}

func (p *Pool) create(ctx context.Context, idx int, d board.Draft) Result {
	r := Result{Index: idx, Draft: d}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}
	if err := board.ValidateDraft(d); err != nil {
		r.Err = err
		return r
	}

	start := time.Now()
	r.Err = p.svc.CreateTask(ctx, d)
	r.Duration = time.Since(start)

	entry := p.log.WithField("item", idx).WithField("duration", r.Duration)
	if r.Err != nil {
		entry.WithError(r.Err).Warn("import create failed")
	} else {
		entry.Debug("import create done")
	}
	return r
}

// Failed counts the results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
