// Package docstore persists the observed response skeleton of every invoked
// endpoint path in a single JSON document.
package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/mark3labs/apishape/internal/skeleton"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultPath is the documentation file used when none is configured.
const DefaultPath = "response.json"

// NoDocumentationMessage explains an empty result when nothing was recorded yet.
const NoDocumentationMessage = "No documentation yet. Test a few endpoints first."

// WriteError reports that a skeleton could not be persisted.
type WriteError struct {
	Path  string // documentation file
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("docstore: write %s: %v", e.Path, e.Cause)
}
func (e *WriteError) Unwrap() error { return e.Cause }

// ReadError reports a documentation file that exists but cannot be used.
type ReadError struct {
	Path  string
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("docstore: read %s: %v", e.Path, e.Cause)
}
func (e *ReadError) Unwrap() error { return e.Cause }

// Status describes the state of the documentation file for ReadAll callers.
type Status struct {
	Exists  bool
	Message string
}

// Store reads and rewrites the documentation file. Writes made through one
// Store are serialized; separate processes sharing the file are not
// coordinated and the last writer wins.
type Store struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New returns a Store backed by the file at path on fsys.
func New(fsys afero.Fs, path string) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultPath
	}
	return &Store{fs: fsys, path: path}
}

// Path returns the documentation file location.
func (s *Store) Path() string { return s.path }

// Record stores the skeleton of response under invokedPath, replacing any
// earlier skeleton for that path. A missing or unreadable file is treated as
// empty. The returned error is always a *WriteError.
func (s *Store) Record(invokedPath string, response any) error {
	structure := skeleton.Extract(response)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForUpdate()
	doc.Set(invokedPath, structure)
	if err := s.write(doc); err != nil {
		log.Error().Err(err).Str("endpoint", invokedPath).Msg("saving response structure failed")
		return &WriteError{Path: s.path, Cause: err}
	}
	log.Info().Str("endpoint", invokedPath).Str("file", s.path).Msg("response structure saved")
	return nil
}

// ReadAll returns the current document. A missing file yields an empty
// document and a Status explaining that nothing was recorded yet; a file that
// is not a valid document yields an empty document and a Status saying why.
// Other I/O failures are returned.
func (s *Store) ReadAll() (*Document, Status, error) {
	doc, err := s.read()
	var re *ReadError
	switch {
	case err == nil:
		return doc, Status{Exists: true}, nil
	case errors.Is(err, fs.ErrNotExist):
		return NewDocument(), Status{Message: NoDocumentationMessage}, nil
	case errors.As(err, &re):
		log.Warn().Err(err).Str("file", s.path).Msg("ignoring unreadable documentation file")
		return NewDocument(), Status{
			Exists:  true,
			Message: fmt.Sprintf("Documentation file %s is not valid JSON and was ignored: %v", s.path, re.Cause),
		}, nil
	default:
		return nil, Status{Exists: true}, err
	}
}

// Get returns the skeleton recorded for invokedPath.
func (s *Store) Get(invokedPath string) (skeleton.Skeleton, bool, error) {
	doc, _, err := s.ReadAll()
	if err != nil {
		return nil, false, err
	}
	sk, ok := doc.Get(invokedPath)
	return sk, ok, nil
}

func (s *Store) read() (*Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &ReadError{Path: s.path, Cause: err}
	}
	return doc, nil
}

func (s *Store) loadForUpdate() *Document {
	doc, err := s.read()
	switch {
	case err == nil:
		return doc
	case errors.Is(err, fs.ErrNotExist):
	default:
		log.Warn().Err(err).Str("file", s.path).Msg("ignoring unreadable documentation file")
	}
	return NewDocument()
}

// write replaces the file atomically via a temp file and rename. The file
// keeps the permissions of the one it replaces, 0644 when new.
func (s *Store) write(doc *Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	mode := fs.FileMode(0o644)
	if fi, err := s.fs.Stat(s.path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := s.fs.Chmod(tmpName, mode); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
