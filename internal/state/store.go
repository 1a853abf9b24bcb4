// Package state implements the fail-open JSON state file store shared by the
// hook handlers and the CLI. Reads never fail; writes are atomic and guarded by
// a directory lock so at most one writer touches a path at a time.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"agentkit/internal/logging"
)

// ErrLockBusy is returned when another writer holds the lock for a path.
var ErrLockBusy = errors.New("lock busy")

// ErrEmptyPath and ErrEmptyContent reject writes with nothing to do.
var (
	ErrEmptyPath    = errors.New("missing file path")
	ErrEmptyContent = errors.New("no JSON content provided")
)

const (
	lockSuffix  = ".lock"
	tempPattern = ".state-write.*"
	emptyObject = "{}"
	dirPerm     = 0755
	lockDirPerm = 0755
	filePerm    = 0644
)

// Store reads and writes state files. The zero value is not usable; call New.
type Store struct {
	log *zap.Logger
}

// New creates a Store that reports write failures to log.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{log: log.Named("state-write")}
}

// Load returns the document at path when it holds a JSON object or array, and
// `{}` in every other case. The parent directory is created best-effort.
func (s *Store) Load(path string) json.RawMessage {
	if path == "" {
		return json.RawMessage(emptyObject)
	}
	ensureParent(path)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return json.RawMessage(emptyObject)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.StateDebug("read %s: %v", path, err)
		return json.RawMessage(emptyObject)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return json.RawMessage(emptyObject)
	}
	if data[0] != '{' && data[0] != '[' {
		return json.RawMessage(emptyObject)
	}
	return json.RawMessage(data)
}

// Read returns the object at path, or an empty map. Arrays also yield an
// empty map since callers expect an object.
func (s *Store) Read(path string) map[string]any {
	out := map[string]any{}
	raw := s.Load(path)
	if raw[0] != '{' {
		return out
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return map[string]any{}
	}
	return out
}

// ReadInto decodes the document at path into v. It returns false when the
// file held nothing usable, leaving v untouched.
func (s *Store) ReadInto(path string, v any) bool {
	raw := s.Load(path)
	if string(raw) == emptyObject {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Write stores content at path and reports success. Failures are logged,
// never returned.
func (s *Store) Write(path string, content any) bool {
	if err := s.WriteFile(path, content); err != nil {
		s.log.Warn("state write failed", zap.String("path", path), zap.Error(err))
		logging.Get(logging.CategoryState).Warn("write %s: %v", path, err)
		return false
	}
	logging.StateDebug("wrote %s", path)
	return true
}

// WriteFile is Write with the error exposed. Strings and byte slices are
// written verbatim; anything else is JSON-encoded. A trailing newline is
// always appended.
func (s *Store) WriteFile(path string, content any) error {
	if path == "" {
		return ErrEmptyPath
	}
	data, err := encode(content)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyContent
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	lock := path + lockSuffix
	if err := os.Mkdir(lock, lockDirPerm); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w for %s", ErrLockBusy, path)
		}
		return fmt.Errorf("lock failed for %s: %w", path, err)
	}
	defer os.Remove(lock)

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	committed = true
	return nil
}

func encode(content any) ([]byte, error) {
	switch c := content.(type) {
	case nil:
		return nil, ErrEmptyContent
	case string:
		return []byte(c), nil
	case []byte:
		return c, nil
	case json.RawMessage:
		return c, nil
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}
		return data, nil
	}
}

func ensureParent(path string) {
	parent := filepath.Dir(path)
	if parent == "" || parent == "." {
		return
	}
	_ = os.MkdirAll(parent, dirPerm)
}
