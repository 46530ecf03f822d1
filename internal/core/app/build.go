// # internal/core/app/build.go
package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"nekoscript/internal/core/errors"
	"nekoscript/internal/core/watcher"
	"nekoscript/internal/engine/verify"
	"nekoscript/internal/shared/observability"
	"nekoscript/internal/shared/util"
)

// BuiltFile is one compiled source.
type BuiltFile struct {
	Source string         `json:"source"`
	Output string         `json:"output"`
	Report *verify.Report `json:"report,omitempty"`
}

type BuildResult struct {
	Root   string        `json:"root"`
	OutDir string        `json:"out_dir"`
	Files  []BuiltFile   `json:"files"`
	Took   time.Duration `json:"-"`
}

// Invalid counts outputs whose verification found syntax errors.
func (r BuildResult) Invalid() int {
	n := 0
	for _, f := range r.Files {
		if f.Report != nil && !f.Report.Valid {
			n++
		}
	}
	return n
}

// Build transpiles every .neko file under dir into outDir, keeping the
// relative layout. An empty dir builds the project root; an empty outDir
// uses transpile.out_dir.
func (s *Service) Build(ctx context.Context, dir, outDir string) (BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.Build")
	defer span.End()
	started := time.Now()

	root := s.Paths.ProjectRoot
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return BuildResult{}, err
		}
		root = abs
	}
	if outDir == "" {
		outDir = s.Config.Transpile.OutDir
	}
	outDir = resolveUnder(root, outDir)

	sources, err := s.DiscoverSources(root, outDir)
	if err != nil {
		observability.RecordError(span, err)
		return BuildResult{}, err
	}

	res := BuildResult{Root: root, OutDir: outDir, Files: make([]BuiltFile, 0, len(sources))}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rel, err := filepath.Rel(root, src)
		if err != nil {
			return res, err
		}
		out := filepath.Join(outDir, jsPath(rel))
		tr, _, err := s.TranspileFile(ctx, src, out)
		if err != nil {
			return res, errors.AddContext(err, errors.CtxPath, src)
		}
		res.Files = append(res.Files, BuiltFile{Source: rel, Output: out, Report: tr.Report})
	}
	res.Took = time.Since(started)
	observability.OperationDuration.WithLabelValues("build").Observe(res.Took.Seconds())
	span.SetAttributes(attribute.Int("nekoscript.files", len(res.Files)))
	return res, nil
}

// DiscoverSources lists .neko files under root, skipping the output
// directory and anything matching watch.exclude.
func (s *Service) DiscoverSources(root, outDir string) ([]string, error) {
	excluder, err := watcher.NewExcluder(s.Config.Watch.Exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "build directory not found"), errors.CtxPath, root)
	}
	if !info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "build target is not a directory"), errors.CtxPath, root)
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != root && (path == outDir || excluder.Match(rel, true)) {
				return filepath.SkipDir
			}
			return nil
		}
		if watcher.IsSource(path) && !excluder.Match(rel, false) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func resolveUnder(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func writeArtifact(path, content string) error {
	if err := util.WriteStringWithDirs(path, content, 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write artifact"), errors.CtxPath, path)
	}
	return nil
}
