package collection

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// ErrRemoteWatch is returned by Watch for URL inputs.
var ErrRemoteWatch = errors.New("collection: cannot watch a remote collection")

// Source owns the current catalog for one collection input. Readers always
// see a complete catalog; a rebuild swaps it in atomically.
type Source struct {
	fs    afero.Fs
	input string
	opts  []Option

	current atomic.Pointer[Catalog]
	group   singleflight.Group
}

// NewSource returns a source with an empty catalog. Call Rebuild to load it.
func NewSource(fsys afero.Fs, input string, opts ...Option) *Source {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	s := &Source{fs: fsys, input: input, opts: opts}
	s.current.Store(NewCatalog(nil))
	return s
}

// Input is the collection path or URL.
func (s *Source) Input() string { return s.input }

// Catalog returns the current catalog. It is never nil.
func (s *Source) Catalog() *Catalog { return s.current.Load() }

// Rebuild reloads the collection and swaps in the new catalog. Concurrent
// calls share one load. When loading fails the previous catalog stays in
// place and the error is returned.
func (s *Source) Rebuild(ctx context.Context) (*Catalog, error) {
	v, err, _ := s.group.Do("rebuild", func() (any, error) {
		c, err := Load(ctx, s.fs, s.input, s.opts...)
		if err != nil {
			return nil, err
		}
		catalog := NewCatalog(Parse(c))
		s.current.Store(catalog)
		return catalog, nil
	})
	if err != nil {
		log.Error().Err(err).Str("collection", s.input).Msg("catalog rebuild failed; keeping previous catalog")
		return s.Catalog(), err
	}
	catalog := v.(*Catalog)
	log.Info().Str("collection", s.input).Int("endpoints", catalog.Len()).Msg("catalog rebuilt")
	return catalog, nil
}

// Watch rebuilds the catalog whenever the collection file changes, until ctx
// is done. It watches the parent directory so editors that replace the file
// on save are still seen.
func (s *Source) Watch(ctx context.Context) error {
	if _, remote := parseRemote(s.input); remote {
		return ErrRemoteWatch
	}
	target, err := filepath.Abs(s.input)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	log.Info().Str("collection", target).Msg("watching collection for changes")

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("collection", target).Msg("watch error")
		case <-timer.C:
			_, _ = s.Rebuild(ctx)
		}
	}
}
