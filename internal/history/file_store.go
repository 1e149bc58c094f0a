package history

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/response"
)

// FileStore keeps responses in a single JSON document, newest first.
type FileStore struct {
	path       string
	maxEntries int
	entries    []response.Response
	mu         sync.Mutex
	loaded     bool
}

func NewFileStore(path string, maxEntries int) *FileStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &FileStore{path: path, maxEntries: maxEntries}
}

func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

func (s *FileStore) Append(_ context.Context, resp response.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	if strings.TrimSpace(resp.ID) == "" {
		resp.ID = newResponseID()
	}

	// memory only follows the file once the write succeeded
	next := make([]response.Response, 0, len(s.entries)+1)
	next = append(next, resp)
	next = append(next, s.entries...)
	sortNewestFirst(next)
	if len(next) > s.maxEntries {
		next = next[:s.maxEntries]
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *FileStore) Latest(_ context.Context, requestID string) (*response.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(requestID)
	if id == "" {
		return nil, nil
	}
	// entries are kept newest first, so the first hit wins
	for _, entry := range s.entries {
		if entry.RequestID == id {
			return cloneResponse(entry), nil
		}
	}
	return nil, nil
}

func (s *FileStore) Requests(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(s.entries))
	var ids []string
	for _, entry := range s.entries {
		if entry.RequestID == "" {
			continue
		}
		if _, ok := seen[entry.RequestID]; ok {
			continue
		}
		seen[entry.RequestID] = struct{}{}
		ids = append(ids, entry.RequestID)
	}
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) persist(entries []response.Response) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write history tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace history file")
	}

	return nil
}

func (s *FileStore) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = []response.Response{}
			s.loaded = true
			return nil
		}
		return errdef.Wrap(errdef.CodeHistory, err, "read history")
	}

	if len(data) == 0 {
		s.entries = []response.Response{}
		s.loaded = true
		return nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "parse history")
	}

	sortNewestFirst(s.entries)
	s.loaded = true
	return nil
}
