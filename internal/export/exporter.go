package export

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/filesvc"
	"github.com/unkn0wn-root/respane/internal/response"
	"github.com/unkn0wn-root/respane/internal/telemetry"
)

const (
	EventCancel  = "response.body.export.cancel"
	EventSuccess = "response.body.export.success"
	EventFailure = "response.body.export.failure"
	EventCopy    = "response.body.copy"

	dialogTitle       = "Save Response Body"
	dialogButtonLabel = "Save"
	defaultBaseName   = "response"
)

// Dialog asks the user for a destination. An empty path means cancelled.
type Dialog interface {
	SaveFile(ctx context.Context, opts SaveOptions) (string, error)
}

type SaveOptions struct {
	Title       string
	ButtonLabel string
	DefaultName string
	Filters     []Filter
}

type Filter struct {
	Name      string
	Extension string
}

type FileWriter interface {
	WriteFile(path string, data []byte) error
}

type MimeLookup interface {
	Extension(contentType string) string
}

type Clipboard interface {
	WriteAll(text string) error
}

type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCancelled
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSucceeded:
		return "success"
	case OutcomeFailed:
		return "failure"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome Outcome
	Path    string
	Bytes   int
	Err     error
}

type Config struct {
	Dialog    Dialog
	Writer    FileWriter
	Mime      MimeLookup
	Sink      telemetry.Sink
	Clipboard Clipboard
	Logger    *log.Logger
}

// Exporter saves and copies response bodies. Calls are independent; two
// overlapping exports are not deduplicated.
type Exporter struct {
	dialog    Dialog
	writer    FileWriter
	mime      MimeLookup
	sink      telemetry.Sink
	clipboard Clipboard
	logger    *log.Logger
}

func New(cfg Config) *Exporter {
	e := &Exporter{
		dialog:    cfg.Dialog,
		writer:    cfg.Writer,
		mime:      cfg.Mime,
		sink:      cfg.Sink,
		clipboard: cfg.Clipboard,
		logger:    cfg.Logger,
	}
	if e.writer == nil {
		e.writer = filesvc.OSWriter{}
	}
	if e.mime == nil {
		e.mime = MimeTable{}
	}
	if e.sink == nil {
		e.sink = telemetry.Noop()
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e
}

// DefaultExtension derives the suggested extension for contentType, "" when unknown.
func (e *Exporter) DefaultExtension(contentType string) string {
	return e.mime.Extension(contentType)
}

// Export decodes resp's body, prompts for a destination and writes it.
// It never panics on I/O problems; the outcome is reported in Result and
// through the telemetry sink.
func (e *Exporter) Export(ctx context.Context, resp *response.Response) Result {
	if resp == nil {
		e.logger.Printf("export: no response loaded, ignoring download")
		return Result{Outcome: OutcomeSkipped}
	}

	data, err := resp.Decode()
	if err != nil {
		return e.fail(ctx, resp, "", err)
	}

	ext := e.DefaultExtension(resp.ContentType)
	opts := SaveOptions{
		Title:       dialogTitle,
		ButtonLabel: dialogButtonLabel,
		DefaultName: defaultBaseName,
	}
	if ext != "" {
		opts.DefaultName = defaultBaseName + "." + ext
		opts.Filters = []Filter{{Name: strings.ToUpper(ext), Extension: ext}}
	}

	if e.dialog == nil {
		return e.fail(ctx, resp, "", errdef.New(errdef.CodeDialog, "save dialog unavailable"))
	}
	path, err := e.dialog.SaveFile(ctx, opts)
	if err != nil {
		return e.fail(ctx, resp, "", errdef.Wrap(errdef.CodeDialog, err, "save dialog"))
	}
	path = strings.TrimSpace(path)
	if path == "" {
		e.sink.Record(ctx, telemetry.Event{Name: EventCancel, Fields: eventFields(resp, "")})
		return Result{Outcome: OutcomeCancelled}
	}

	if err := e.writer.WriteFile(path, data); err != nil {
		return e.fail(ctx, resp, path, errdef.Wrap(errdef.CodeExport, err, "save response body"))
	}

	fields := eventFields(resp, path)
	fields["bytes"] = strconv.Itoa(len(data))
	e.sink.Record(ctx, telemetry.Event{Name: EventSuccess, Fields: fields})
	return Result{Outcome: OutcomeSucceeded, Path: path, Bytes: len(data)}
}

// Copy places a text body on the clipboard. Binary bodies are refused.
func (e *Exporter) Copy(ctx context.Context, resp *response.Response) Result {
	if resp == nil {
		e.logger.Printf("export: no response loaded, ignoring copy")
		return Result{Outcome: OutcomeSkipped}
	}
	data, err := resp.Decode()
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	return e.CopyText(ctx, resp, string(data))
}

// CopyText places text on the clipboard, attributing the event to resp.
func (e *Exporter) CopyText(ctx context.Context, resp *response.Response, text string) Result {
	if !utf8.ValidString(text) {
		return Result{Outcome: OutcomeFailed, Err: errdef.New(errdef.CodeExport, "binary body cannot be copied")}
	}
	if e.clipboard == nil {
		return Result{Outcome: OutcomeFailed, Err: errdef.New(errdef.CodeExport, "clipboard unavailable")}
	}
	if err := e.clipboard.WriteAll(text); err != nil {
		return Result{Outcome: OutcomeFailed, Err: errdef.Wrap(errdef.CodeExport, err, "copy to clipboard")}
	}
	fields := eventFields(resp, "")
	fields["bytes"] = strconv.Itoa(len(text))
	e.sink.Record(ctx, telemetry.Event{Name: EventCopy, Fields: fields})
	return Result{Outcome: OutcomeSucceeded, Bytes: len(text)}
}

func (e *Exporter) fail(ctx context.Context, resp *response.Response, path string, err error) Result {
	e.sink.Record(ctx, telemetry.Event{Name: EventFailure, Fields: eventFields(resp, path), Err: err})
	return Result{Outcome: OutcomeFailed, Path: path, Err: err}
}

func eventFields(resp *response.Response, path string) map[string]string {
	fields := map[string]string{}
	if resp != nil {
		if resp.RequestID != "" {
			fields["request"] = resp.RequestID
		}
		if resp.ID != "" {
			fields["response"] = resp.ID
		}
		if resp.ContentType != "" {
			fields["content_type"] = resp.ContentType
		}
	}
	if path != "" {
		fields["path"] = path
	}
	return fields
}

// Summary renders r for the status line.
func (r Result) Summary() string {
	switch r.Outcome {
	case OutcomeSucceeded:
		if r.Path == "" {
			return fmt.Sprintf("Copied response body (%d bytes)", r.Bytes)
		}
		return fmt.Sprintf("Saved response body (%d bytes) to %s", r.Bytes, r.Path)
	case OutcomeCancelled:
		return "Save cancelled"
	case OutcomeFailed:
		return errdef.Message(r.Err)
	default:
		return "No response to save"
	}
}
