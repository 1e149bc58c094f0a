package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/respane/internal/errdef"
	"github.com/unkn0wn-root/respane/internal/response"
)

//go:embed schema.sql
var schemaSQL string

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

// SQLiteStore keeps responses in a SQLite database; Latest is an indexed lookup.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errdef.New(errdef.CodeHistory, "sqlite store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "create store dir")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHistory, err, "open sqlite store")
	}
	// a single connection keeps WAL writes serialized
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func applySchema(db *sql.DB) error {
	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errdef.Wrap(errdef.CodeHistory, err, "set pragma %q", pragma)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "apply schema")
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, resp response.Response) error {
	if strings.TrimSpace(resp.ID) == "" {
		resp.ID = newResponseID()
	}
	headers, err := json.Marshal(resp.Headers)
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "encode headers")
	}
	if resp.Headers == nil {
		headers = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responses (
			id, request_id, created_at, status_code, status_message, elapsed_ns,
			bytes_read, body, encoding, content_type, headers, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.ID,
		resp.RequestID,
		unixNano(resp.CreatedAt),
		resp.StatusCode,
		resp.StatusMessage,
		int64(resp.Elapsed),
		resp.BytesRead,
		resp.Body,
		string(resp.Encoding),
		resp.ContentType,
		string(headers),
		resp.Error,
	)
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "insert response %s", resp.ID)
	}
	return nil
}

func (s *SQLiteStore) Latest(ctx context.Context, requestID string) (*response.Response, error) {
	id := strings.TrimSpace(requestID)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, created_at, status_code, status_message, elapsed_ns,
		       bytes_read, body, encoding, content_type, headers, error
		FROM responses
		WHERE request_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, id)

	var (
		resp      response.Response
		createdAt int64
		elapsed   int64
		encoding  string
		headers   string
	)
	err := row.Scan(
		&resp.ID,
		&resp.RequestID,
		&createdAt,
		&resp.StatusCode,
		&resp.StatusMessage,
		&elapsed,
		&resp.BytesRead,
		&resp.Body,
		&encoding,
		&resp.ContentType,
		&headers,
		&resp.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHistory, err, "query latest response for %s", id)
	}
	if createdAt != 0 {
		resp.CreatedAt = time.Unix(0, createdAt).UTC()
	}
	resp.Elapsed = time.Duration(elapsed)
	resp.Encoding = response.Encoding(encoding)
	if headers != "" {
		if err := json.Unmarshal([]byte(headers), &resp.Headers); err != nil {
			return nil, errdef.Wrap(errdef.CodeHistory, err, "decode headers of %s", resp.ID)
		}
	}
	if len(resp.Headers) == 0 {
		resp.Headers = nil
	}
	return &resp, nil
}

func (s *SQLiteStore) Requests(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id
		FROM responses
		GROUP BY request_id
		ORDER BY MAX(created_at) DESC, request_id`)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHistory, err, "list requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errdef.Wrap(errdef.CodeHistory, err, "scan request id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeHistory, err, "list requests")
	}
	return ids, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
