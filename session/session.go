// Package session holds the process-wide fileId -> SessionEntry map:
// the latest compiled tokens/diagnostics/events per open file, rebuilt
// on every FileUpdate and served read-only in between.
//
// Grounded on praetorian-inc-titus's pkg/store.MemoryStore: a single
// mutex guarding the map itself, with finer per-key locking (here, a
// per-fileId mutex guarding the version counter and the entry swap)
// layered on top so distinct files never block each other.
package session

import (
	"crypto/sha256"
	"sync"

	"github.com/symi-lang/symi/diag"
	"github.com/symi-lang/symi/event"
	"github.com/symi-lang/symi/expand"
	"github.com/symi-lang/symi/lexer"
	"github.com/symi-lang/symi/parser"
	"github.com/symi-lang/symi/resolve"
	"github.com/symi-lang/symi/token"
)

// Entry is the cached output of one file's lex/parse/expand/resolve
// pipeline, plus the source hash callers use to detect stale reads.
type Entry struct {
	SourceHash  [32]byte
	Tokens      []token.Token
	Diagnostics []diag.Diagnostic
	Events      []event.Event
	version     uint64
}

type fileState struct {
	mu    sync.Mutex // guards version and entry; not held while the pipeline runs
	entry *Entry
	// version is bumped on every FileUpdate call for this fileId,
	// before the rebuild starts, so an in-flight rebuild can detect
	// it has been superseded and discard its result.
	version uint64
}

// Store is the process-wide session map.
type Store struct {
	mu    sync.RWMutex
	files map[string]*fileState
}

// New returns an empty Store.
func New() *Store {
	return &Store{files: make(map[string]*fileState)}
}

func (s *Store) stateFor(fileID string) *fileState {
	s.mu.RLock()
	fs, ok := s.files[fileID]
	s.mu.RUnlock()
	if ok {
		return fs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fs, ok := s.files[fileID]; ok {
		return fs
	}
	fs = &fileState{}
	s.files[fileID] = fs
	return fs
}

// FileUpdate re-runs lexer->parser->expander->resolver over source
// and replaces fileId's entry. Rebuilds for the same fileId may run
// concurrently; fs.mu serializes only the version claim and the entry
// swap. If a newer FileUpdate supersedes this one while the pipeline
// is running, this rebuild's result is discarded in favor of the newer
// one (last-writer-wins by monotone version).
func (s *Store) FileUpdate(fileID string, source []byte) []diag.Diagnostic {
	fs := s.stateFor(fileID)

	fs.mu.Lock()
	myVersion := fs.version + 1
	fs.version = myVersion
	fs.mu.Unlock()

	toks, lexDiags := lexer.Tokenize(source)
	root, parseDiags := parser.Parse(source, toks)
	expanded, expandDiags := expand.Expand(root)
	events, resolveDiags := resolve.Resolve(expanded)

	var allDiags []diag.Diagnostic
	allDiags = append(allDiags, lexDiags...)
	allDiags = append(allDiags, parseDiags...)
	allDiags = append(allDiags, expandDiags...)
	allDiags = append(allDiags, resolveDiags...)

	entry := &Entry{
		SourceHash:  sha256.Sum256(source),
		Tokens:      toks,
		Diagnostics: allDiags,
		Events:      events,
		version:     myVersion,
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.version != myVersion {
		// A later FileUpdate started and finished (or is still running
		// and already claimed the version counter) while this rebuild
		// was in flight; its result is newer, so ours is discarded.
		return allDiags
	}
	fs.entry = entry
	return allDiags
}

// FileClose drops fileId's entry.
func (s *Store) FileClose(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
}

func (s *Store) entryFor(fileID string) *Entry {
	s.mu.RLock()
	fs, ok := s.files[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.entry
}

// GetTokens returns the cached token slice, or nil if fileId has never
// been built.
func (s *Store) GetTokens(fileID string) []token.Token {
	e := s.entryFor(fileID)
	if e == nil {
		return nil
	}
	return e.Tokens
}

// GetDiagnostics returns the cached diagnostic slice.
func (s *Store) GetDiagnostics(fileID string) []diag.Diagnostic {
	e := s.entryFor(fileID)
	if e == nil {
		return nil
	}
	return e.Diagnostics
}

// GetEvents returns the cached event slice.
func (s *Store) GetEvents(fileID string) []event.Event {
	e := s.entryFor(fileID)
	if e == nil {
		return nil
	}
	return e.Events
}
