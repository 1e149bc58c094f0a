package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/respane/internal/response"
)

type mapSource struct {
	mu    sync.Mutex
	calls []string
	data  map[string]*response.Response
	err   error
}

func (s *mapSource) Latest(_ context.Context, id string) (*response.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if s.err != nil {
		return nil, s.err
	}
	return s.data[id], nil
}

// gatedSource blocks each lookup until its request's gate is released.
type gatedSource struct {
	gates map[string]chan struct{}
	data  map[string]*response.Response
}

func (s *gatedSource) Latest(ctx context.Context, id string) (*response.Response, error) {
	select {
	case <-s.gates[id]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.data[id], nil
}

func TestResolveEmptyIDSkipsStore(t *testing.T) {
	src := &mapSource{}
	l := New(src)
	got, err := l.Resolve(context.Background(), "  ")
	if err != nil || got != nil {
		t.Fatalf("expected nil response, got %+v (%v)", got, err)
	}
	if len(src.calls) != 0 {
		t.Fatalf("expected no store calls, got %v", src.calls)
	}
}

func TestResolveUnknownRequestIsAbsent(t *testing.T) {
	l := New(&mapSource{data: map[string]*response.Response{}})
	got, err := l.Resolve(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected absent, got %+v (%v)", got, err)
	}
}

func TestResolveReadsFreshEachTime(t *testing.T) {
	src := &mapSource{data: map[string]*response.Response{"r": {ID: "1"}}}
	l := New(src)
	first, _ := l.Resolve(context.Background(), "r")
	src.data["r"] = &response.Response{ID: "2"}
	second, _ := l.Resolve(context.Background(), "r")
	if first.ID != "1" || second.ID != "2" {
		t.Fatalf("expected fresh reads, got %s then %s", first.ID, second.ID)
	}
	if len(src.calls) != 2 {
		t.Fatalf("expected 2 store calls, got %d", len(src.calls))
	}
}

func TestResolvePropagatesStoreError(t *testing.T) {
	boom := errors.New("disk gone")
	l := New(&mapSource{err: boom})
	if _, err := l.Resolve(context.Background(), "r"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSelectSupersedesEarlierTickets(t *testing.T) {
	l := New(&mapSource{})
	t1 := l.Select("r1")
	if !l.Current(t1) {
		t.Fatalf("fresh ticket should be current")
	}
	t2 := l.Select("r2")
	if l.Current(t1) {
		t.Fatalf("ticket for r1 should be stale after selecting r2")
	}
	if !l.Current(t2) {
		t.Fatalf("ticket for r2 should be current")
	}
	t3 := l.Select("r2")
	if l.Current(t2) || !l.Current(t3) {
		t.Fatalf("reselecting the same request must supersede the previous ticket")
	}
	if l.Active() != "r2" {
		t.Fatalf("unexpected active %q", l.Active())
	}
}

func TestOverlappingLoadsDiscardStaleResult(t *testing.T) {
	src := &gatedSource{
		gates: map[string]chan struct{}{"r1": make(chan struct{}), "r2": make(chan struct{})},
		data: map[string]*response.Response{
			"r1": {ID: "resp-1", RequestID: "r1"},
			"r2": {ID: "resp-2", RequestID: "r2"},
		},
	}
	l := New(src)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		res     Result
		current bool
	}
	t1 := l.Select("r1")
	r1Done := make(chan outcome, 1)
	go func() {
		res, ok := l.Load(ctx, t1)
		r1Done <- outcome{res, ok}
	}()

	t2 := l.Select("r2")
	r2Done := make(chan outcome, 1)
	go func() {
		res, ok := l.Load(ctx, t2)
		r2Done <- outcome{res, ok}
	}()

	// r2 resolves first, then the older r1 lookup completes late
	close(src.gates["r2"])
	second := <-r2Done
	close(src.gates["r1"])
	first := <-r1Done

	if !second.current || second.res.Response.ID != "resp-2" {
		t.Fatalf("expected r2 result applied, got %+v", second)
	}
	if first.current {
		t.Fatalf("stale r1 result must not be applied while r2 is active")
	}
}
