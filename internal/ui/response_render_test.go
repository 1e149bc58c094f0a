package ui

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/respane/internal/response"
)

func TestBodyContentPrettyPrintsJSON(t *testing.T) {
	resp := &response.Response{Body: `{"a":1}`, ContentType: "application/json; charset=utf-8"}
	plain, _ := bodyContent(resp, "")
	if plain != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected pretty body %q", plain)
	}
}

func TestBodyContentKeepsPlainText(t *testing.T) {
	resp := &response.Response{Body: "hello", ContentType: "text/plain"}
	plain, display := bodyContent(resp, "")
	if plain != "hello" || display != "hello" {
		t.Fatalf("unexpected text body %q / %q", plain, display)
	}
}

func TestBodyContentShowsErrorText(t *testing.T) {
	resp := &response.Response{Body: "dial tcp: refused", Error: "dial tcp: refused"}
	plain, _ := bodyContent(resp, "")
	if plain != "dial tcp: refused" {
		t.Fatalf("expected error text, got %q", plain)
	}
}

func TestBodyContentSummarisesBinary(t *testing.T) {
	resp := &response.Response{Body: "iVBORw==", Encoding: response.EncodingBase64, ContentType: "image/png"}
	plain, _ := bodyContent(resp, "")
	if !strings.HasPrefix(plain, "Binary body, 4 B (image/png)") {
		t.Fatalf("unexpected binary summary %q", plain)
	}
}

func TestBodyContentReportsFilterErrors(t *testing.T) {
	resp := &response.Response{Body: "not json", ContentType: "text/plain"}
	plain, _ := bodyContent(resp, "a.b")
	if !strings.Contains(plain, "filter needs a JSON body") {
		t.Fatalf("expected filter error, got %q", plain)
	}
}

func TestApplyBodyFilterNullResult(t *testing.T) {
	got, err := applyBodyFilter(`{"a":1}`, "missing")
	if err != nil {
		t.Fatalf("applyBodyFilter: %v", err)
	}
	if got != "null" {
		t.Fatalf("expected null, got %q", got)
	}
	if _, err := applyBodyFilter(`{"a":1}`, "a[?"); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestHeadersTextAlignsNames(t *testing.T) {
	got := headersText([]response.Header{{Name: "A", Value: "1"}, {Name: "Long", Value: "2"}}, 0)
	want := "A:    1\nLong: 2"
	if got != want {
		t.Fatalf("headersText = %q, want %q", got, want)
	}
}

func TestHeadersTextTruncatesToWidth(t *testing.T) {
	got := headersText([]response.Header{{Name: "X", Value: strings.Repeat("v", 40)}}, 10)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != 10 {
		t.Fatalf("expected truncated line of width 10, got %q", got)
	}
}

func TestCookiesText(t *testing.T) {
	cookies := []*http.Cookie{{Name: "sid", Value: "abc", Path: "/", HttpOnly: true}}
	got := cookiesText(cookies, 0)
	if got != "sid=abc; path=/; httponly" {
		t.Fatalf("unexpected cookies text %q", got)
	}
	if cookiesText(nil, 0) != "No cookies" {
		t.Fatalf("expected empty cookies label")
	}
}

func TestLoadingLabelSwitchesAfterThreshold(t *testing.T) {
	if got := loadingLabel(time.Second, 3*time.Second, "*"); got != "* Sending request…" {
		t.Fatalf("unexpected spinner label %q", got)
	}
	if got := loadingLabel(4500*time.Millisecond, 3*time.Second, "*"); got != "Waiting for response… 4s" {
		t.Fatalf("unexpected slow label %q", got)
	}
}

func TestSummaryIncludesTags(t *testing.T) {
	resp := &response.Response{StatusCode: 200, StatusMessage: "OK", Elapsed: 250 * time.Millisecond, BytesRead: 2048}
	got := renderSummary(resp)
	for _, want := range []string{"200 OK", "250 ms", "2.0 KiB"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}
}
