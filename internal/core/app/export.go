// # internal/core/app/export.go
package app

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nekoscript/internal/core/errors"
	"nekoscript/internal/engine/interpret"
	"nekoscript/internal/engine/verify"
	"nekoscript/internal/shared/observability"
)

var exportPage = template.Must(template.ParseFS(templateFS, "templates/export.html.tmpl"))

type ExportResult struct {
	Output string                  `json:"output"`
	Events []interpret.OutputEvent `json:"messages"`
	HTML   *verify.Report          `json:"html,omitempty"`
	CSS    *verify.Report          `json:"css,omitempty"`
}

// ExportHTML renders a standalone page with the script source and the
// output of running it. The page is written to outDir/<name>.html, outDir
// defaulting to the working directory.
func (s *Service) ExportHTML(ctx context.Context, path, outDir string) (ExportResult, error) {
	started := time.Now()
	if !strings.HasSuffix(path, ".neko") {
		return ExportResult{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "only .neko files can be exported"), errors.CtxPath, path)
	}
	src, err := readSource(path)
	if err != nil {
		return ExportResult{}, err
	}
	run, err := s.Run(ctx, RunRequest{Name: path, Source: string(src)})
	if err != nil {
		return ExportResult{}, err
	}

	css, err := templateFS.ReadFile("templates/export.css")
	if err != nil {
		return ExportResult{}, errors.Wrap(err, errors.CodeInternal, "read export stylesheet")
	}
	name := strings.TrimSuffix(filepath.Base(path), ".neko")

	var page bytes.Buffer
	err = exportPage.Execute(&page, struct {
		Name   string
		Source string
		CSS    template.CSS
		Events []interpret.OutputEvent
	}{name, string(src), template.CSS(css), run.Events})
	if err != nil {
		return ExportResult{}, errors.Wrap(err, errors.CodeInternal, "render export page")
	}

	if outDir == "" {
		outDir, err = os.Getwd()
		if err != nil {
			return ExportResult{}, err
		}
	}
	res := ExportResult{Output: filepath.Join(outDir, name+".html"), Events: run.Events}
	if err := writeArtifact(res.Output, page.String()); err != nil {
		return res, err
	}

	if rep, err := s.verifyArtifact(ctx, verify.HTML, page.Bytes()); err == nil {
		res.HTML = &rep
	}
	if rep, err := s.verifyArtifact(ctx, verify.CSS, css); err == nil {
		res.CSS = &rep
	}
	observability.OperationDuration.WithLabelValues("export").Observe(time.Since(started).Seconds())
	return res, nil
}
