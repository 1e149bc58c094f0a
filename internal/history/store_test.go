package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unkn0wn-root/respane/internal/response"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := Open(Options{Backend: BackendJSON, Path: filepath.Join(dir, "history.json")})
	if err != nil {
		t.Fatalf("open json store: %v", err)
	}
	sqliteStore, err := Open(Options{Backend: BackendSQLite, Path: filepath.Join(dir, "responses.db")})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = fileStore.Close()
		_ = sqliteStore.Close()
	})
	return map[string]Store{BackendJSON: fileStore, BackendSQLite: sqliteStore}
}

func TestLatestReturnsNilWithoutResponses(t *testing.T) {
	for name, store := range openStores(t) {
		got, err := store.Latest(context.Background(), "never-sent")
		if err != nil {
			t.Fatalf("%s: latest: %v", name, err)
		}
		if got != nil {
			t.Fatalf("%s: expected no response, got %+v", name, got)
		}
	}
}

func TestLatestPicksNewestCreatedAt(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		entries := []response.Response{
			{ID: "b", RequestID: "req-1", CreatedAt: t1.Add(2 * time.Minute), StatusCode: 201},
			{ID: "a", RequestID: "req-1", CreatedAt: t1, StatusCode: 200},
			{ID: "c", RequestID: "req-1", CreatedAt: t1.Add(time.Minute), StatusCode: 500},
			{ID: "d", RequestID: "req-2", CreatedAt: t1.Add(time.Hour), StatusCode: 404},
		}
		for _, e := range entries {
			if err := store.Append(ctx, e); err != nil {
				t.Fatalf("%s: append %s: %v", name, e.ID, err)
			}
		}

		got, err := store.Latest(ctx, "req-1")
		if err != nil {
			t.Fatalf("%s: latest: %v", name, err)
		}
		if got == nil || got.ID != "b" {
			t.Fatalf("%s: expected response b, got %+v", name, got)
		}
		if got.StatusCode != 201 {
			t.Fatalf("%s: unexpected status %d", name, got.StatusCode)
		}
	}
}

func TestLatestBreaksTiesOnID(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range openStores(t) {
		_ = store.Append(ctx, response.Response{ID: "0001", RequestID: "r", CreatedAt: at})
		_ = store.Append(ctx, response.Response{ID: "0002", RequestID: "r", CreatedAt: at})
		got, err := store.Latest(ctx, "r")
		if err != nil {
			t.Fatalf("%s: latest: %v", name, err)
		}
		if got == nil || got.ID != "0002" {
			t.Fatalf("%s: expected 0002, got %+v", name, got)
		}
	}
}

func TestLatestRoundTripsFields(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	want := response.Response{
		ID:            "x1",
		RequestID:     "req",
		CreatedAt:     at,
		StatusCode:    200,
		StatusMessage: "OK",
		Elapsed:       120 * time.Millisecond,
		BytesRead:     5,
		Body:          "SGVsbG8=",
		Encoding:      response.EncodingBase64,
		ContentType:   "text/plain",
		Headers: []response.Header{
			{Name: "Content-Type", Value: "text/plain"},
			{Name: "Set-Cookie", Value: "a=1"},
		},
	}
	for name, store := range openStores(t) {
		if err := store.Append(ctx, want); err != nil {
			t.Fatalf("%s: append: %v", name, err)
		}
		got, err := store.Latest(ctx, "req")
		if err != nil || got == nil {
			t.Fatalf("%s: latest: %v (%v)", name, got, err)
		}
		if !got.CreatedAt.Equal(at) || got.Elapsed != want.Elapsed || got.Encoding != want.Encoding {
			t.Fatalf("%s: unexpected scalar fields %+v", name, got)
		}
		if len(got.Headers) != 2 || got.Headers[1].Name != "Set-Cookie" {
			t.Fatalf("%s: headers lost order: %+v", name, got.Headers)
		}
	}
}

func TestRequestsOrderedByActivity(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range openStores(t) {
		_ = store.Append(ctx, response.Response{ID: "1", RequestID: "old", CreatedAt: t1})
		_ = store.Append(ctx, response.Response{ID: "2", RequestID: "new", CreatedAt: t1.Add(time.Hour)})
		_ = store.Append(ctx, response.Response{ID: "3", RequestID: "old", CreatedAt: t1.Add(time.Minute)})

		ids, err := store.Requests(ctx)
		if err != nil {
			t.Fatalf("%s: requests: %v", name, err)
		}
		if len(ids) != 2 || ids[0] != "new" || ids[1] != "old" {
			t.Fatalf("%s: unexpected order %v", name, ids)
		}
	}
}

func TestFileStoreTrimsAndPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	store := NewFileStore(path, 2)
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"1", "2", "3"} {
		resp := response.Response{ID: id, RequestID: "r", CreatedAt: t1.Add(time.Duration(i) * time.Minute)}
		if err := store.Append(ctx, resp); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	if got := len(store.entries); got != 2 {
		t.Fatalf("expected 2 entries after trim, got %d", got)
	}

	reopened := NewFileStore(path, 2)
	latest, err := reopened.Latest(ctx, "r")
	if err != nil {
		t.Fatalf("latest after reopen: %v", err)
	}
	if latest == nil || latest.ID != "3" {
		t.Fatalf("expected entry 3 after reopen, got %+v", latest)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLatestReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "h.json"), 10)
	_ = store.Append(ctx, response.Response{
		ID:        "1",
		RequestID: "r",
		Headers:   []response.Header{{Name: "A", Value: "1"}},
	})
	got, _ := store.Latest(ctx, "r")
	got.Headers[0].Value = "mutated"
	again, _ := store.Latest(ctx, "r")
	if again.Headers[0].Value != "1" {
		t.Fatalf("store entry was mutated through returned value")
	}
}

func TestFileStoreFailedPersistLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	store := NewFileStore(filepath.Join(dir, "history.json"), 10)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := os.WriteFile(dir, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("replace store dir with file: %v", err)
	}

	err := store.Append(ctx, response.Response{ID: "a", RequestID: "r", CreatedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected append to fail when the store dir is a file")
	}
	latest, err := store.Latest(ctx, "r")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("unsaved response must not be visible, got %+v", latest)
	}
	if ids, _ := store.Requests(ctx); len(ids) != 0 {
		t.Fatalf("expected no requests after failed append, got %v", ids)
	}
}

func TestAppendAssignsMissingIDs(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 2; i++ {
			resp := response.Response{RequestID: "blank", CreatedAt: base.Add(time.Duration(i) * time.Second)}
			if err := store.Append(ctx, resp); err != nil {
				t.Fatalf("%s: append %d: %v", name, i, err)
			}
		}
		latest, err := store.Latest(ctx, "blank")
		if err != nil {
			t.Fatalf("%s: latest: %v", name, err)
		}
		if latest == nil || latest.ID == "" {
			t.Fatalf("%s: expected generated id, got %+v", name, latest)
		}
		if !latest.CreatedAt.Equal(base.Add(time.Second)) {
			t.Fatalf("%s: expected newest response, got %v", name, latest.CreatedAt)
		}
	}
}
