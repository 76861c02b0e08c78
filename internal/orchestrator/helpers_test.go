package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/node"
	"github.com/vk/nodeflow/internal/runctx"
)

// trace records the order in which nodes ran and cleaned up.
type trace struct {
	mu      sync.Mutex
	ran     []string
	cleaned []string
}

func (tr *trace) add(list *[]string, id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	*list = append(*list, id)
}

func (tr *trace) Ran() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.ran...)
}

func (tr *trace) Cleaned() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.cleaned...)
}

// step is a traced processor with an optional failure and delay.
type step struct {
	id    string
	tr    *trace
	err   error
	delay time.Duration
	fn    func(rc *runctx.Context)
}

func (s *step) Process(ctx context.Context, rc *runctx.Context) error {
	s.tr.add(&s.tr.ran, s.id)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.fn != nil {
		s.fn(rc)
	}
	return s.err
}

func (s *step) Cleanup(context.Context, *runctx.Context) error {
	s.tr.add(&s.tr.cleaned, s.id)
	return nil
}

// chain registers ids as traced steps connected in sequence.
func chain(t *testing.T, o *Orchestrator, tr *trace, ids ...string) map[string]*step {
	t.Helper()
	steps := make(map[string]*step, len(ids))
	for _, id := range ids {
		s := &step{id: id, tr: tr}
		steps[id] = s
		require.NoError(t, o.Register(id, node.New("step", s)))
	}
	for i := 1; i < len(ids); i++ {
		require.NoError(t, o.Connect(ids[i-1], ids[i]))
	}
	return steps
}

// recorder is an Observer keeping every event.
type recorder struct {
	mu      sync.Mutex
	started []RunReport
	nodes   []NodeReport
	runs    []RunReport
}

func (r *recorder) RunStarted(_ context.Context, rep RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, rep)
}

func (r *recorder) NodeFinished(_ context.Context, rep NodeReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = append(r.nodes, rep)
}

func (r *recorder) RunFinished(_ context.Context, rep RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, rep)
}
