package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imkarma/taskboard/internal/board"
)

type recordingCreator struct {
	mu      sync.Mutex
	created []string
	fail    map[string]error
	delay   time.Duration

	active atomic.Int32
	peak   atomic.Int32
}

func (c *recordingCreator) CreateTask(ctx context.Context, d board.Draft) error {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[d.Message]; err != nil {
		return err
	}
	c.created = append(c.created, d.Message)
	return nil
}

func drafts(msgs ...string) []board.Draft {
	out := make([]board.Draft, len(msgs))
	for i, m := range msgs {
		out[i] = board.Draft{Message: m, Priority: board.PriorityNormal}
	}
	return out
}

func TestRunSequential(t *testing.T) {
	c := &recordingCreator{}
	p := NewPool(c, 1, nil)

	results := p.Run(context.Background(), drafts("a", "b", "c"))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if Failed(results) != 0 {
		t.Errorf("unexpected failures: %+v", results)
	}
	if len(c.created) != 3 || c.created[0] != "a" || c.created[2] != "c" {
		t.Errorf("created = %v, want in order", c.created)
	}
}

func TestRunParallelKeepsOrderAndBound(t *testing.T) {
	c := &recordingCreator{delay: 20 * time.Millisecond}
	p := NewPool(c, 2, nil)

	results := p.Run(context.Background(), drafts("a", "b", "c", "d", "e"))
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		if r.Err != nil {
			t.Errorf("result %d: %v", i, r.Err)
		}
	}
	if results[3].Draft.Message != "d" {
		t.Errorf("result 3 = %q, want d", results[3].Draft.Message)
	}
	if peak := c.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
	if len(c.created) != 5 {
		t.Errorf("created %d, want 5", len(c.created))
	}
}

func TestRunReportsFailures(t *testing.T) {
	boom := errors.New("boom")
	c := &recordingCreator{fail: map[string]error{"b": boom}}
	p := NewPool(c, 3, nil)

	ds := drafts("a", "b", "")
	results := p.Run(context.Background(), ds)

	if !errors.Is(results[1].Err, boom) {
		t.Errorf("result 1 err = %v, want boom", results[1].Err)
	}
	if !errors.Is(results[2].Err, board.ErrEmptyMessage) {
		t.Errorf("result 2 err = %v, want ErrEmptyMessage", results[2].Err)
	}
	if Failed(results) != 2 {
		t.Errorf("Failed = %d, want 2", Failed(results))
	}
	if len(c.created) != 1 {
		t.Errorf("created = %v, want only a", c.created)
	}
}

func TestRunCancelled(t *testing.T) {
	c := &recordingCreator{}
	p := NewPool(c, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.Run(ctx, drafts("a", "b", "c"))
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("result %d err = %v, want context.Canceled", i, r.Err)
		}
	}
	if len(c.created) != 0 {
		t.Errorf("created = %v after cancel", c.created)
	}
}
