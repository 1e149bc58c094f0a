package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/respane/internal/bindings"
	"github.com/unkn0wn-root/respane/internal/capture"
	"github.com/unkn0wn-root/respane/internal/config"
	"github.com/unkn0wn-root/respane/internal/export"
	"github.com/unkn0wn-root/respane/internal/history"
	"github.com/unkn0wn-root/respane/internal/loader"
	"github.com/unkn0wn-root/respane/internal/telemetry"
	"github.com/unkn0wn-root/respane/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const envLogFile = "RESPANE_LOG"

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup (store close,
// telemetry flush) happens before exit.
func run() int {
	var (
		requestID       string
		storeBackend    string
		storePath       string
		slowMS          int
		exportMode      bool
		copyMode        bool
		writeSettings   bool
		outPath         string
		recordURL       string
		method          string
		data            string
		noUI            bool
		timeout         time.Duration
		showVersion     bool
		traceOTEndpoint string
		traceOTInsecure bool
		traceOTService  string
	)

	telemetryCfg := telemetry.ConfigFromEnv(os.Getenv)
	traceOTEndpoint = telemetryCfg.Endpoint
	traceOTInsecure = telemetryCfg.Insecure
	traceOTService = telemetryCfg.ServiceName

	flag.StringVar(&requestID, "request", "", "Request ID whose latest response is shown first")
	flag.StringVar(&storeBackend, "store", "", "Response store backend (json or sqlite)")
	flag.StringVar(&storePath, "store-path", "", "Path to the response store")
	flag.IntVar(&slowMS, "slow", 0, "Milliseconds before the loading spinner switches to elapsed seconds")
	flag.BoolVar(&exportMode, "export", false, "Save the latest response body of -request and exit")
	flag.StringVar(&outPath, "out", "", "Destination for -export; prompts when empty")
	flag.BoolVar(&copyMode, "copy", false, "Copy the latest response body of -request to the clipboard and exit")
	flag.BoolVar(&writeSettings, "write-settings", false, "Save the effective settings (with flag overrides) and exit")
	flag.StringVar(&recordURL, "record", "", "Send a request to URL and store its response")
	flag.StringVar(&method, "method", http.MethodGet, "HTTP method for -record")
	flag.StringVar(&data, "data", "", "Request body for -record")
	flag.BoolVar(&noUI, "no-ui", false, "Record without starting the pane")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout for -record")
	flag.BoolVar(&showVersion, "version", false, "Show respane version")
	flag.StringVar(
		&traceOTEndpoint,
		"trace-otel-endpoint",
		traceOTEndpoint,
		"OTLP collector endpoint for pane events",
	)
	flag.BoolVar(
		&traceOTInsecure,
		"trace-otel-insecure",
		traceOTInsecure,
		"Disable TLS for OTLP export",
	)
	flag.StringVar(
		&traceOTService,
		"trace-otel-service",
		traceOTService,
		"Override service.name resource attribute for exported spans",
	)
	flag.Parse()

	telemetryCfg.Endpoint = strings.TrimSpace(traceOTEndpoint)
	telemetryCfg.Insecure = traceOTInsecure
	telemetryCfg.ServiceName = strings.TrimSpace(traceOTService)
	telemetryCfg.Version = version

	if showVersion {
		fmt.Printf("respane %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		if sum, err := executableChecksum(); err == nil {
			fmt.Printf("  sha256: %s\n", sum)
		} else {
			fmt.Printf("  sha256: unavailable (%v)\n", err)
		}
		return 0
	}

	if requestID == "" && flag.NArg() > 0 {
		requestID = flag.Arg(0)
	}

	interactive := !exportMode && !copyMode && !writeSettings && !(recordURL != "" && noUI)
	if interactive {
		closeLog := redirectLog(logTarget(os.Getenv(envLogFile)))
		defer closeLog()
	}

	settings, settingsHandle, err := config.LoadSettings()
	if err != nil {
		log.Printf("settings load error: %v", err)
		settings = config.DefaultSettings()
		settingsHandle = config.SettingsHandle{
			Path:   filepath.Join(config.Dir(), "settings.toml"),
			Format: config.SettingsFormatTOML,
		}
	}
	settings = applyFlags(settings, storeBackend, storePath, slowMS)

	if writeSettings {
		if err := config.SaveSettings(settings, settingsHandle); err != nil {
			fmt.Fprintf(os.Stderr, "write settings: %v\n", err)
			return 1
		}
		fmt.Printf("Saved settings to %s\n", settingsHandle.Path)
		return 0
	}

	provider, err := telemetry.New(telemetryCfg)
	if err != nil {
		if telemetryCfg.Enabled() {
			log.Printf("telemetry init error: %v", err)
		}
		provider = telemetry.Noop()
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := provider.Shutdown(ctx); shutdownErr != nil {
			log.Printf("telemetry shutdown: %v", shutdownErr)
		}
	}()
	sink := telemetry.Multi(provider, telemetry.LogSink{})

	store, err := history.Open(history.Options{
		Backend:    settings.Store.Backend,
		Path:       settings.Store.Path,
		MaxEntries: settings.Store.MaxEntries,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open response store: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close response store: %v", closeErr)
		}
	}()

	recorder := &capture.Recorder{
		Client: &http.Client{Timeout: timeout},
		Store:  store,
		Sink:   sink,
	}
	ld := loader.New(store)
	ctx := context.Background()

	switch {
	case recordURL != "" && noUI:
		if err := runRecord(ctx, recorder, requestID, method, recordURL, data, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "record: %v\n", err)
			return 1
		}
		return 0
	case exportMode:
		var dialog export.Dialog = export.FixedDialog{Path: outPath, Base: settings.Export.Dir}
		if strings.TrimSpace(outPath) == "" {
			dialog = ui.TerminalDialog{Base: settings.Export.Dir}
		}
		exp := export.New(export.Config{Dialog: dialog, Sink: sink})
		if err := runExport(ctx, ld, exp, requestID, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "export: %v\n", err)
			return 1
		}
		return 0
	case copyMode:
		exp := export.New(export.Config{Clipboard: export.SystemClipboard{}, Sink: sink})
		if err := runCopy(ctx, ld, exp, requestID, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "copy: %v\n", err)
			return 1
		}
		return 0
	}

	bindingMap, _, bindingErr := bindings.Load(config.Dir())
	if bindingErr != nil {
		log.Printf("bindings load error: %v", bindingErr)
		bindingMap = bindings.DefaultMap()
	}

	bridge := ui.NewPromptBridge()
	defer bridge.Close()
	exp := export.New(export.Config{
		Dialog:    bridge,
		Sink:      sink,
		Clipboard: export.SystemClipboard{},
	})

	model := ui.New(ui.Config{
		Requests:       store,
		Loader:         ld,
		Exporter:       exp,
		Bridge:         bridge,
		Bindings:       bindingMap,
		Pane:           settings.Pane,
		ExportDir:      settings.Export.Dir,
		InitialRequest: initialRequest(requestID, recordURL, method),
		Sink:           sink,
		Logger:         log.Default(),
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if recordURL != "" {
		go recordInto(ctx, program, recorder, requestID, method, recordURL, data)
	}
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// logTarget prefers RESPANE_LOG and falls back to the config dir log file.
func logTarget(env string) string {
	if path := strings.TrimSpace(env); path != "" {
		return path
	}
	return config.LogPath()
}

// redirectLog keeps log output off the alternate screen.
func redirectLog(path string) func() {
	path = strings.TrimSpace(path)
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	f, err := tea.LogToFile(path, "respane")
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	return func() { _ = f.Close() }
}

func executableChecksum() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	f, err := os.Open(exe)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
