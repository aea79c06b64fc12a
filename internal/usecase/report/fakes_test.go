package report

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/futig/report-writer/internal/entity"
)

// fakeStream yields the scripted fragments and then the optional error.
type fakeStream struct {
	fragments []string
	err       error
	closes    atomic.Int32
	closed    atomic.Bool
	// beforeYield runs after fragment i was read and before it is handed over.
	beforeYield func(i int)
}

func (s *fakeStream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i, f := range s.fragments {
			if s.closed.Load() {
				return
			}
			if s.beforeYield != nil {
				s.beforeYield(i)
			}
			if !yield(f, nil) {
				return
			}
		}
		if s.err != nil {
			yield("", s.err)
		}
	}
}

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	s.closed.Store(true)
	return nil
}

type fakeModel struct {
	mu          sync.Mutex
	streamReqs  []entity.ChatRequest
	stream      func(req entity.ChatRequest) (entity.FragmentStream, error)
	completions []func() (string, error)
	calls       int
}

func (m *fakeModel) StreamChat(_ context.Context, req entity.ChatRequest) (entity.FragmentStream, error) {
	m.mu.Lock()
	m.streamReqs = append(m.streamReqs, req)
	m.mu.Unlock()
	return m.stream(req)
}

func (m *fakeModel) ChatCompletion(_ context.Context, req entity.ChatRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := min(m.calls, len(m.completions)-1)
	m.calls++
	return m.completions[i]()
}

type fakeKnowledge struct {
	configured bool
	defaults   []string
	result     entity.KnowledgeQueryResult
	calls      atomic.Int32
	lastQuery  atomic.Value
}

func (k *fakeKnowledge) Configured() bool            { return k.configured }
func (k *fakeKnowledge) DefaultDatasetIDs() []string { return k.defaults }

func (k *fakeKnowledge) Retrieve(_ context.Context, query string, _ []string, _ int) entity.KnowledgeQueryResult {
	k.calls.Add(1)
	k.lastQuery.Store(query)
	res := k.result
	res.QueryText = query
	return res
}

func (k *fakeKnowledge) ListDatasets(context.Context) entity.DatasetListing {
	return entity.DatasetListing{Options: []entity.DatasetOption{{ID: "a", Name: "A"}}}
}

// recordingWriter collects fragments and can run a hook after each write.
type recordingWriter struct {
	fragments []string
	after     func(n int)
	failAfter int
}

func (w *recordingWriter) WriteFragment(text string) error {
	if w.failAfter > 0 && len(w.fragments) >= w.failAfter {
		return context.Canceled
	}
	w.fragments = append(w.fragments, text)
	if w.after != nil {
		w.after(len(w.fragments))
	}
	return nil
}
