package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/history"
	"github.com/unkn0wn-root/respane/internal/response"
	"github.com/unkn0wn-root/respane/internal/telemetry"
)

type eventLog struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (l *eventLog) Record(_ context.Context, ev telemetry.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func newStore(t *testing.T) history.Store {
	t.Helper()
	store := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"), 10)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordStoresTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	store := newStore(t)
	events := &eventLog{}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &Recorder{Client: srv.Client(), Store: store, Sink: events, Now: func() time.Time { return fixed }}

	resp, err := rec.Record(context.Background(), "req-1", "post", srv.URL, []byte("x"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || resp.StatusMessage != "Created" {
		t.Fatalf("unexpected status %d %q", resp.StatusCode, resp.StatusMessage)
	}
	if resp.Encoding != response.EncodingText || resp.Body != `{"ok":true}` {
		t.Fatalf("unexpected body %q (%s)", resp.Body, resp.Encoding)
	}
	if resp.BytesRead != int64(len(`{"ok":true}`)) {
		t.Fatalf("unexpected bytes read %d", resp.BytesRead)
	}
	if resp.ID == "" || !resp.CreatedAt.Equal(fixed) {
		t.Fatalf("expected id and created time, got %q %v", resp.ID, resp.CreatedAt)
	}
	if cookies := resp.Cookies(); len(cookies) != 2 || cookies[0].Name != "a" || cookies[1].Name != "b" {
		t.Fatalf("unexpected cookies %+v", cookies)
	}

	stored, err := store.Latest(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if stored == nil || stored.ID != resp.ID {
		t.Fatalf("expected stored response %q, got %+v", resp.ID, stored)
	}
	if len(events.events) != 1 || events.events[0].Name != EventRecorded {
		t.Fatalf("unexpected events %+v", events.events)
	}
}

func TestRecordEncodesBinaryAsBase64(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0xff, 0x00}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	rec := &Recorder{Client: srv.Client(), Store: newStore(t)}
	resp, err := rec.Record(context.Background(), "img", "", srv.URL, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.Encoding != response.EncodingBase64 {
		t.Fatalf("expected base64 encoding, got %q", resp.Encoding)
	}
	data, err := resp.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("decoded body mismatch: %v", data)
	}
}

func TestRecordStoresTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	store := newStore(t)
	events := &eventLog{}
	rec := &Recorder{Store: store, Sink: events}
	resp, err := rec.Record(context.Background(), "down", "GET", url, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errdef.CodeOf(err) != errdef.CodeHTTP {
		t.Fatalf("expected http code, got %s", errdef.CodeOf(err))
	}
	if resp == nil || !resp.IsError() || resp.Body != resp.Error {
		t.Fatalf("expected error response, got %+v", resp)
	}
	stored, _ := store.Latest(context.Background(), "down")
	if stored == nil || !stored.IsError() {
		t.Fatalf("expected stored error response, got %+v", stored)
	}
	if len(events.events) != 1 || events.events[0].Err == nil {
		t.Fatalf("expected failure event, got %+v", events.events)
	}
}

func TestRecordDefaultsRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := &Recorder{Client: srv.Client(), Store: newStore(t)}
	resp, err := rec.Record(context.Background(), " ", "get", srv.URL, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.RequestID != "GET "+srv.URL {
		t.Fatalf("unexpected request id %q", resp.RequestID)
	}
}
