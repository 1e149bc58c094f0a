package filesvc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/unkn0wn-root/respane/internal/errdef"
)

// OSWriter writes whole files on the host filesystem.
type OSWriter struct {
	Perm os.FileMode
}

// WriteFile creates or truncates path and writes data in one pass.
// Missing parent directories are created.
func (w OSWriter) WriteFile(path string, data []byte) error {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if strings.TrimSpace(path) == "" {
		return errdef.New(errdef.CodeFilesystem, "write path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create directories for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "open %s", path)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errdef.Wrap(errdef.CodeFilesystem, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "close %s", path)
	}
	return nil
}

// ResolvePath expands a leading ~ and anchors relative input at base
// (or the working directory when base is empty).
func ResolvePath(input, base string) (string, error) {
	path := ExpandHome(strings.TrimSpace(input))
	if path == "" {
		return "", nil
	}
	if !filepath.IsAbs(path) {
		base = strings.TrimSpace(base)
		if base == "" {
			if cwd, err := os.Getwd(); err == nil {
				base = cwd
			}
		}
		if base != "" {
			path = filepath.Join(base, path)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errdef.Wrap(errdef.CodeFilesystem, err, "resolve path")
	}
	return abs, nil
}

func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
