// # internal/core/app/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"nekoscript/internal/core/config"
	"nekoscript/internal/core/ports"
	"nekoscript/internal/data/store"
	"nekoscript/internal/engine/interpret"
	"nekoscript/internal/engine/lang"
	"nekoscript/internal/engine/transpile"
	"nekoscript/internal/engine/verify"
)

// Service wires the language engine to persistence and the file system. It
// is the single entry point used by the CLI, the REPL and the HTTP API.
type Service struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	store      *store.Store
	libs       ports.LibraryStore
	classifier *lang.Classifier
	interpMu   sync.RWMutex
	interp     *interpret.Interpreter
	transpiler *transpile.Transpiler
	verifier   *verify.Verifier
	recorder   *runRecorder
}

// Options override parts of the wiring, mostly for tests.
type Options struct {
	// Cwd anchors relative paths. Defaults to the process working directory.
	Cwd string
	// Store replaces the database opened from the configuration.
	Store *store.Store
	// SkipSeed leaves a freshly opened database empty.
	SkipSeed bool
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, err
	}

	s := &Service{
		Config:     cfg,
		Paths:      paths,
		classifier: lang.NewClassifier(),
		transpiler: transpile.New(),
		verifier:   verify.New(),
	}

	st := opts.Store
	if st == nil && cfg.DB.Enabled {
		st, err = store.Open(paths.DBPath, store.Options{BusyTimeout: cfg.DB.BusyTimeout})
		if err != nil {
			return nil, err
		}
	}
	if st != nil && !opts.SkipSeed {
		if err := st.Seed(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed store: %w", err)
		}
	}
	s.store = st

	s.libs = s.libraryChain()
	s.interp = interpret.New(s.libs, interpret.Options{TraceBodies: cfg.Interpret.TraceBodies})

	if st != nil {
		rec, err := newRunRecorder(cfg.Queue, st, filepath.Join(paths.StateDir, "run-spool.db"))
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		s.recorder = rec
	}

	slog.Debug("service ready", "home", paths.Home, "project_root", paths.ProjectRoot, "db", cfg.DB.Enabled)
	return s, nil
}

// libraryChain resolves imports from the project libs/ folder first, then
// the installed libraries under the neko home, then the database.
func (s *Service) libraryChain() ports.LibraryStore {
	chain := store.Chain{
		store.DirLibraries{Dir: filepath.Join(s.Paths.ProjectRoot, "libs")},
		store.DirLibraries{Dir: s.Paths.LibsDir},
	}
	if s.store != nil {
		chain = append(chain, s.store)
	}
	return chain
}

// Store returns the backing database, or nil when persistence is disabled.
func (s *Service) Store() *store.Store {
	return s.store
}

// Verifier exposes the grammar pool shared by transpile and export.
func (s *Service) Verifier() *verify.Verifier {
	return s.verifier
}

// SetTraceBodies switches body tracing on a live service, as done on config
// reload.
func (s *Service) SetTraceBodies(on bool) {
	s.interpMu.Lock()
	defer s.interpMu.Unlock()
	s.interp = interpret.New(s.libs, interpret.Options{TraceBodies: on})
}

func (s *Service) interpreter() *interpret.Interpreter {
	s.interpMu.RLock()
	defer s.interpMu.RUnlock()
	return s.interp
}

// Close drains pending run records and closes the database.
func (s *Service) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.recorder != nil {
		if err := s.recorder.Close(ctx); err != nil {
			slog.Warn("run recorder drain failed", "error", err)
		}
		s.recorder = nil
	}
	if s.store != nil {
		err := s.store.Close()
		s.store = nil
		return err
	}
	return nil
}
