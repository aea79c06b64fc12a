// Package sections runs per-section work over an outline with bounded
// concurrency and reassembles the results in outline order.
package sections

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of sections generated at once.
const DefaultConcurrency = 3

// Worker produces the text of one section. emit may be called any number of
// times with consecutive pieces of that section; pieces are kept even if the
// worker later fails.
type Worker func(ctx context.Context, index int, title string, emit func(text string)) error

// Progress is called each time a section finishes successfully. Calls never
// overlap.
type Progress func(completed, total int)

// Result holds one slot per outline entry.
type Result struct {
	Texts     []string
	Completed []bool
}

// CompletedCount returns how many sections finished successfully.
func (r *Result) CompletedCount() int {
	n := 0
	for _, done := range r.Completed {
		if done {
			n++
		}
	}
	return n
}

type options struct {
	progress Progress
}

type Option func(*options)

func WithProgress(p Progress) Option {
	return func(o *options) {
		o.progress = p
	}
}

// Run starts min(concurrency, len(outline)) workers. Each one claims the next
// unclaimed index until none remain or ctx is done. The first worker error
// cancels the rest; whatever text every section had produced is still in the
// returned Result.
func Run(ctx context.Context, outline []string, concurrency int, worker Worker, opts ...Option) (*Result, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	total := len(outline)
	result := &Result{
		Texts:     make([]string, total),
		Completed: make([]bool, total),
	}
	if total == 0 {
		return result, nil
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	workers := min(concurrency, total)

	// Slot i is written only by the worker that claimed i. progressMu keeps
	// progress callbacks serialized and their counts increasing.
	var (
		next       atomic.Int64
		builders   = make([]strings.Builder, total)
		mu         sync.Mutex
		progressMu sync.Mutex
		completed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				i := int(next.Add(1) - 1)
				if i >= total {
					return nil
				}

				emit := func(text string) {
					mu.Lock()
					builders[i].WriteString(text)
					mu.Unlock()
				}
				if err := worker(gctx, i, outline[i], emit); err != nil {
					return fmt.Errorf("section %d %q: %w", i, outline[i], err)
				}

				progressMu.Lock()
				result.Completed[i] = true
				completed++
				if o.progress != nil {
					o.progress(completed, total)
				}
				progressMu.Unlock()
			}
		})
	}

	err := g.Wait()
	for i := range builders {
		result.Texts[i] = builders[i].String()
	}
	if err == nil {
		err = ctx.Err()
	}
	return result, err
}

// BuildFullText assembles "## title\n\nbody" for every section, in outline
// order, separated by blank lines.
func BuildFullText(outline, texts []string) string {
	parts := make([]string, 0, len(outline))
	for i, title := range outline {
		body := ""
		if i < len(texts) {
			body = texts[i]
		}
		parts = append(parts, "## "+title+"\n\n"+body)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
