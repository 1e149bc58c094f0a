// Package capture executes HTTP requests and stores the results so the
// response pane has something to show.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/history"
	"github.com/unkn0wn-root/respane/internal/response"
	"github.com/unkn0wn-root/respane/internal/telemetry"
)

const EventRecorded = "response.recorded"

type Recorder struct {
	Client *http.Client
	Store  history.Store
	Sink   telemetry.Sink
	Now    func() time.Time
}

// Record executes the request and appends the outcome to the store. Transport
// failures are stored too, as error responses, and also returned.
func (r *Recorder) Record(
	ctx context.Context,
	requestID, method, url string,
	body []byte,
) (*response.Response, error) {
	if r == nil || r.Store == nil {
		return nil, errdef.New(errdef.CodeHTTP, "recorder has no store")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(url)
	}

	resp, execErr := r.execute(ctx, method, url, body)
	resp.RequestID = requestID
	resp.CreatedAt = r.now()
	resp.ID = newID()

	if err := r.Store.Append(ctx, *resp); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"request_id":  requestID,
		"response_id": resp.ID,
		"status":      strconv.Itoa(resp.StatusCode),
		"bytes":       strconv.FormatInt(resp.BytesRead, 10),
	}
	r.sink().Record(ctx, telemetry.Event{Name: EventRecorded, Fields: fields, Err: execErr})
	return resp, execErr
}

func (r *Recorder) execute(
	ctx context.Context,
	method, url string,
	body []byte,
) (*response.Response, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSpace(url), reader)
	if err != nil {
		err = errdef.Wrap(errdef.CodeHTTP, err, "build request")
		return errorResponse(err, 0), err
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	httpResp, err := client.Do(req)
	if err != nil {
		err = errdef.Wrap(errdef.CodeHTTP, err, "perform request")
		return errorResponse(err, time.Since(start)), err
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(start)
	if err != nil {
		err = errdef.Wrap(errdef.CodeHTTP, err, "read response body")
		return errorResponse(err, elapsed), err
	}

	out := &response.Response{
		StatusCode:    httpResp.StatusCode,
		StatusMessage: statusMessage(httpResp),
		Elapsed:       elapsed,
		BytesRead:     int64(len(payload)),
		ContentType:   httpResp.Header.Get("Content-Type"),
		Headers:       flattenHeaders(httpResp.Header),
	}
	out.Body, out.Encoding = encodeBody(payload)
	return out, nil
}

func errorResponse(err error, elapsed time.Duration) *response.Response {
	msg := errdef.Message(err)
	return &response.Response{
		Elapsed:  elapsed,
		Body:     msg,
		Encoding: response.EncodingText,
		Error:    msg,
	}
}

func statusMessage(resp *http.Response) string {
	text := strings.TrimSpace(resp.Status)
	code := strconv.Itoa(resp.StatusCode)
	text = strings.TrimSpace(strings.TrimPrefix(text, code))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func encodeBody(payload []byte) (string, response.Encoding) {
	if utf8.Valid(payload) {
		return string(payload), response.EncodingText
	}
	return base64.StdEncoding.EncodeToString(payload), response.EncodingBase64
}

// flattenHeaders keeps per-name value order and sorts names.
func flattenHeaders(h http.Header) []response.Header {
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]response.Header, 0, len(names))
	for _, name := range names {
		for _, value := range h[name] {
			out = append(out, response.Header{Name: name, Value: value})
		}
	}
	return out
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Recorder) sink() telemetry.Sink {
	if r.Sink != nil {
		return r.Sink
	}
	return telemetry.Noop()
}
