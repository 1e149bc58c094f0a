package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
	SettingsFormatYAML SettingsFormat = "yaml"

	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"

	TabBody    = "body"
	TabCookies = "cookies"
	TabHeaders = "headers"

	DefaultSlowRequestMS = 3000
	DefaultMaxEntries    = 500
)

type Settings struct {
	Store  StoreSettings  `json:"store"  toml:"store"  yaml:"store"`
	Pane   PaneSettings   `json:"pane"   toml:"pane"   yaml:"pane"`
	Export ExportSettings `json:"export" toml:"export" yaml:"export"`
}

type StoreSettings struct {
	Backend    string `json:"backend"     toml:"backend"     yaml:"backend"`
	Path       string `json:"path"        toml:"path"        yaml:"path"`
	MaxEntries int    `json:"max_entries" toml:"max_entries" yaml:"max_entries"`
}

type PaneSettings struct {
	SlowRequestMS int    `json:"slow_request_ms" toml:"slow_request_ms" yaml:"slow_request_ms"`
	DefaultTab    string `json:"default_tab"     toml:"default_tab"     yaml:"default_tab"`
}

type ExportSettings struct {
	Dir string `json:"dir" toml:"dir" yaml:"dir"`
}

type SettingsFormat string
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

func DefaultSettings() Settings {
	return Normalise(Settings{})
}

// Normalise fills zero values and clamps unknown choices back to defaults.
func Normalise(s Settings) Settings {
	s.Store.Backend = strings.ToLower(strings.TrimSpace(s.Store.Backend))
	switch s.Store.Backend {
	case StoreBackendJSON, StoreBackendSQLite:
	default:
		s.Store.Backend = StoreBackendJSON
	}
	if strings.TrimSpace(s.Store.Path) == "" {
		if s.Store.Backend == StoreBackendSQLite {
			s.Store.Path = DatabasePath()
		} else {
			s.Store.Path = HistoryPath()
		}
	}
	if s.Store.MaxEntries <= 0 {
		s.Store.MaxEntries = DefaultMaxEntries
	}
	if s.Pane.SlowRequestMS <= 0 {
		s.Pane.SlowRequestMS = DefaultSlowRequestMS
	}
	s.Pane.DefaultTab = strings.ToLower(strings.TrimSpace(s.Pane.DefaultTab))
	switch s.Pane.DefaultTab {
	case TabBody, TabCookies, TabHeaders:
	default:
		s.Pane.DefaultTab = TabBody
	}
	return s
}

func (p PaneSettings) SlowThreshold() time.Duration {
	if p.SlowRequestMS <= 0 {
		return DefaultSlowRequestMS * time.Millisecond
	}
	return time.Duration(p.SlowRequestMS) * time.Millisecond
}

// tries TOML, then JSON, then YAML, and returns defaults if none exists.
// parse errors fail immediately but missing files just skip to the next format.
func LoadSettings() (Settings, SettingsHandle, error) {
	dir := Dir()
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
		{Path: filepath.Join(dir, "settings.yaml"), Format: SettingsFormatYAML},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				fmt.Errorf("read settings %q: %w", candidate.Path, err),
			)
			continue
		}

		settings, err := decodeSettings(data, candidate.Format)
		if err != nil {
			return Settings{}, SettingsHandle{}, fmt.Errorf(
				"parse settings %q: %w",
				candidate.Path,
				err,
			)
		}
		return Normalise(settings), candidate, nil
	}

	if accumulated != nil {
		return Settings{}, SettingsHandle{}, accumulated
	}

	return DefaultSettings(), SettingsHandle{
		Path:   candidates[0].Path,
		Format: SettingsFormatTOML,
	}, nil
}

func decodeSettings(data []byte, format SettingsFormat) (Settings, error) {
	var settings Settings
	switch format {
	case SettingsFormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return settings, nil
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	settings = Normalise(settings)
	path := handle.Path
	format := handle.Format
	if path == "" {
		path = filepath.Join(Dir(), "settings.toml")
	}
	if format == "" {
		format = SettingsFormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure settings directory: %w", err)
	}

	var (
		data []byte
		err  error
	)

	switch format {
	case SettingsFormatTOML:
		data, err = toml.Marshal(settings)
	case SettingsFormatJSON:
		buffer := &bytes.Buffer{}
		encoder := json.NewEncoder(buffer)
		encoder.SetIndent("", "  ")
		if err = encoder.Encode(settings); err == nil {
			data = buffer.Bytes()
		}
	case SettingsFormatYAML:
		data, err = yaml.Marshal(settings)
	default:
		return fmt.Errorf("unsupported settings format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", path, err)
	}
	return nil
}

// write to temp file then rename so readers never see partial/corrupt data.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".respane-settings-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
