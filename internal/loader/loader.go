// Package loader resolves the latest stored response for the active request
// and decides whether an asynchronous lookup result may still be applied.
package loader

import (
	"context"
	"strings"
	"sync"

	"github.com/unkn0wn-root/respane/internal/response"
)

// Source is the read side of the response store.
type Source interface {
	Latest(ctx context.Context, requestID string) (*response.Response, error)
}

// Ticket identifies one selection of the active request.
type Ticket struct {
	RequestID  string
	Generation uint64
}

type Result struct {
	Ticket   Ticket
	Response *response.Response
	Err      error
}

// Loader reads through to its Source on every call; it never caches.
type Loader struct {
	src Source

	mu         sync.Mutex
	generation uint64
	active     string
}

func New(src Source) *Loader {
	return &Loader{src: src}
}

// Resolve returns the most recent response whose parent is requestID.
// An empty requestID resolves to nil without consulting the store.
func (l *Loader) Resolve(ctx context.Context, requestID string) (*response.Response, error) {
	id := strings.TrimSpace(requestID)
	if id == "" || l == nil || l.src == nil {
		return nil, nil
	}
	return l.src.Latest(ctx, id)
}

// Select marks requestID as active. Every earlier ticket becomes stale,
// including one for the same request.
func (l *Loader) Select(requestID string) Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.active = strings.TrimSpace(requestID)
	return Ticket{RequestID: l.active, Generation: l.generation}
}

func (l *Loader) Active() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Current reports whether a result for t may be shown.
func (l *Loader) Current(t Ticket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return t.Generation == l.generation && t.RequestID == l.active
}

// Fetch performs the lookup for t. Callers must check Current before applying.
func (l *Loader) Fetch(ctx context.Context, t Ticket) Result {
	resp, err := l.Resolve(ctx, t.RequestID)
	return Result{Ticket: t, Response: resp, Err: err}
}

// Load fetches for t and reports whether the result is still current once
// the lookup returns.
func (l *Loader) Load(ctx context.Context, t Ticket) (Result, bool) {
	res := l.Fetch(ctx, t)
	return res, l.Current(t)
}
