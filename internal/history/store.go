package history

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/response"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	defaultMaxEntries = 500
)

// Store persists responses produced by the network layer and answers
// latest-by-request lookups for the pane.
type Store interface {
	// Append stores resp, assigning a time ordered ID when resp.ID is empty.
	Append(ctx context.Context, resp response.Response) error
	// Latest returns nil, nil when the request has no stored response.
	Latest(ctx context.Context, requestID string) (*response.Response, error)
	// Requests lists request IDs with stored responses, most recent activity first.
	Requests(ctx context.Context) ([]string, error)
	Close() error
}

type Options struct {
	Backend    string
	Path       string
	MaxEntries int
}

func Open(opts Options) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	switch backend {
	case "", BackendJSON:
		s := NewFileStore(opts.Path, opts.MaxEntries)
		if err := s.Load(); err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		return OpenSQLite(opts.Path)
	default:
		return nil, errdef.New(errdef.CodeHistory, "unknown store backend %q", opts.Backend)
	}
}

// newerFirst orders by CreatedAt descending, breaking ties on ID so that
// time-ordered IDs keep insertion order stable.
func newerFirst(a, b response.Response) bool {
	ai := a.CreatedAt
	bi := b.CreatedAt
	switch {
	case ai.IsZero() && bi.IsZero():
		return a.ID > b.ID
	case ai.IsZero():
		return false
	case bi.IsZero():
		return true
	case ai.Equal(bi):
		return a.ID > b.ID
	default:
		return ai.After(bi)
	}
}

func sortNewestFirst(entries []response.Response) {
	if len(entries) < 2 {
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return newerFirst(entries[i], entries[j])
	})
}

func cloneResponse(r response.Response) *response.Response {
	out := r
	if len(r.Headers) > 0 {
		out.Headers = make([]response.Header, len(r.Headers))
		copy(out.Headers, r.Headers)
	}
	return &out
}

func newResponseID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
