package response

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/unkn0wn-root/respane/internal/errdef"
)

// Encoding tags how Body is represented in storage.
type Encoding string

const (
	EncodingText   Encoding = "text"
	EncodingUTF8   Encoding = "utf8"
	EncodingBase64 Encoding = "base64"
	EncodingHex    Encoding = "hex"
)

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Response is a stored result of executing a request. The pane only reads it.
type Response struct {
	ID            string        `json:"id"`
	RequestID     string        `json:"requestId"`
	CreatedAt     time.Time     `json:"createdAt"`
	StatusCode    int           `json:"statusCode"`
	StatusMessage string        `json:"statusMessage"`
	Elapsed       time.Duration `json:"elapsed"`
	BytesRead     int64         `json:"bytesRead"`
	Body          string        `json:"body"`
	Encoding      Encoding      `json:"encoding"`
	ContentType   string        `json:"contentType"`
	Headers       []Header      `json:"headers,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// IsError reports whether Body carries error text instead of response content.
func (r *Response) IsError() bool {
	return r != nil && strings.TrimSpace(r.Error) != ""
}

// Decode returns the raw body bytes.
func (r *Response) Decode() ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return DecodeBody(r.Body, r.Encoding)
}

func DecodeBody(body string, enc Encoding) ([]byte, error) {
	switch normalizeEncoding(enc) {
	case "", EncodingText, EncodingUTF8:
		return []byte(body), nil
	case EncodingBase64:
		trimmed := strings.TrimSpace(body)
		data, err := base64.StdEncoding.DecodeString(trimmed)
		if err == nil {
			return data, nil
		}
		if raw, rawErr := base64.RawStdEncoding.DecodeString(trimmed); rawErr == nil {
			return raw, nil
		}
		return nil, errdef.Wrap(errdef.CodeDecode, err, "decode base64 body")
	case EncodingHex:
		data, err := hex.DecodeString(strings.TrimSpace(body))
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeDecode, err, "decode hex body")
		}
		return data, nil
	default:
		return nil, errdef.New(errdef.CodeDecode, "unsupported body encoding %q", enc)
	}
}

func normalizeEncoding(enc Encoding) Encoding {
	v := strings.ToLower(strings.TrimSpace(string(enc)))
	if v == "utf-8" {
		return EncodingUTF8
	}
	return Encoding(v)
}

// Header returns the first value whose name matches case-insensitively.
func (r *Response) Header(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Cookies parses every Set-Cookie header in order. Malformed entries are skipped.
func (r *Response) Cookies() []*http.Cookie {
	if r == nil {
		return nil
	}
	var out []*http.Cookie
	for _, h := range r.Headers {
		if !strings.EqualFold(h.Name, "Set-Cookie") {
			continue
		}
		c, err := http.ParseSetCookie(h.Value)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Response) StatusTag() string {
	if r == nil {
		return ""
	}
	if r.IsError() && r.StatusCode == 0 {
		return "Error"
	}
	msg := strings.TrimSpace(r.StatusMessage)
	if msg == "" {
		msg = http.StatusText(r.StatusCode)
	}
	if msg == "" {
		return fmt.Sprintf("%d", r.StatusCode)
	}
	return fmt.Sprintf("%d %s", r.StatusCode, msg)
}

func (r *Response) TimeTag() string {
	if r == nil {
		return ""
	}
	d := r.Elapsed
	switch {
	case d <= 0:
		return "0 ms"
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2f s", d.Seconds())
	}
}

func (r *Response) SizeTag() string {
	if r == nil {
		return ""
	}
	n := r.BytesRead
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// StatusClass buckets the status code for styling: 2, 3, 4, 5 or 0 when unknown.
func (r *Response) StatusClass() int {
	if r == nil || r.StatusCode < 100 || r.StatusCode > 599 {
		return 0
	}
	return r.StatusCode / 100
}
