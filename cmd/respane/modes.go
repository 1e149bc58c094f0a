package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/respane/internal/capture"
	"github.com/unkn0wn-root/respane/internal/config"
	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/loader"
	"github.com/unkn0wn-root/respane/internal/response"
	"github.com/unkn0wn-root/respane/internal/ui"
)

// applyFlags overlays non-empty command line values on loaded settings.
func applyFlags(s config.Settings, backend, path string, slowMS int) config.Settings {
	if b := strings.TrimSpace(backend); b != "" {
		if !strings.EqualFold(b, s.Store.Backend) && strings.TrimSpace(path) == "" {
			s.Store.Path = ""
		}
		s.Store.Backend = b
	}
	if p := strings.TrimSpace(path); p != "" {
		s.Store.Path = p
	}
	if slowMS > 0 {
		s.Pane.SlowRequestMS = slowMS
	}
	return config.Normalise(s)
}

func initialRequest(requestID, recordURL, method string) string {
	if id := strings.TrimSpace(requestID); id != "" {
		return id
	}
	if strings.TrimSpace(recordURL) == "" {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(recordURL)
}

func runRecord(
	ctx context.Context,
	rec *capture.Recorder,
	requestID, method, url, data string,
	out io.Writer,
) error {
	resp, err := rec.Record(ctx, requestID, method, url, []byte(data))
	if resp != nil {
		_, _ = fmt.Fprintf(
			out,
			"%s  %s  %s  %s\n",
			resp.RequestID,
			resp.StatusTag(),
			resp.TimeTag(),
			resp.SizeTag(),
		)
	}
	return err
}

// latestFor resolves the latest stored response of requestID for the
// headless modes, which have nothing to show when it is absent.
func latestFor(ctx context.Context, ld *loader.Loader, requestID string) (*response.Response, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, errdef.New(errdef.CodeExport, "-request is required")
	}
	res := ld.Fetch(ctx, ld.Select(requestID))
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Response == nil {
		return nil, errdef.New(errdef.CodeExport, "no stored response for %q", requestID)
	}
	return res.Response, nil
}

// runExport saves the latest response of requestID. Cancelling is not an error.
func runExport(
	ctx context.Context,
	ld *loader.Loader,
	exp *export.Exporter,
	requestID string,
	out io.Writer,
) error {
	resp, err := latestFor(ctx, ld, requestID)
	if err != nil {
		return err
	}
	result := exp.Export(ctx, resp)
	if result.Outcome == export.OutcomeFailed {
		return result.Err
	}
	_, _ = fmt.Fprintln(out, result.Summary())
	return nil
}

// runCopy places the latest text body of requestID on the clipboard.
func runCopy(
	ctx context.Context,
	ld *loader.Loader,
	exp *export.Exporter,
	requestID string,
	out io.Writer,
) error {
	resp, err := latestFor(ctx, ld, requestID)
	if err != nil {
		return err
	}
	result := exp.Copy(ctx, resp)
	if result.Outcome != export.OutcomeSucceeded {
		return result.Err
	}
	_, _ = fmt.Fprintln(out, result.Summary())
	return nil
}

// recordInto runs a capture while the pane shows its progress.
func recordInto(
	ctx context.Context,
	program *tea.Program,
	rec *capture.Recorder,
	requestID, method, url, data string,
) {
	id := initialRequest(requestID, url, method)
	program.Send(ui.RequestStartedMsg{RequestID: id, Started: time.Now()})
	_, err := rec.Record(ctx, id, method, url, []byte(data))
	program.Send(ui.RequestFinishedMsg{RequestID: id, Err: err})
}
