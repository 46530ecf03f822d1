// # internal/core/app/run.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nekoscript/internal/core/errors"
	"nekoscript/internal/data/store"
	"nekoscript/internal/engine/interpret"
	"nekoscript/internal/engine/lang"
	"nekoscript/internal/engine/verify"
	"nekoscript/internal/shared/observability"
)

const (
	ModeInterpret = "interpret"
	ModeTranspile = "transpile"
)

// RunRequest is one script to interpret. Name is informational.
type RunRequest struct {
	Name   string
	Source string
}

type RunResult struct {
	ID       string                  `json:"id"`
	Events   []interpret.OutputEvent `json:"messages"`
	Lines    int                     `json:"lines"`
	Duration time.Duration           `json:"-"`
	// Unterminated names a function whose body was never closed.
	Unterminated string `json:"unterminated,omitempty"`
}

// TranspileRequest is one script to translate to JavaScript. Verify
// overrides transpile.verify from the configuration.
type TranspileRequest struct {
	Name   string
	Source string
	Verify *bool
}

type TranspileResult struct {
	ID     string         `json:"id"`
	Code   string         `json:"code"`
	Lines  int            `json:"lines"`
	Report *verify.Report `json:"report,omitempty"`
}

func (s *Service) checkSource(source string) error {
	limit := s.Config.Interpret.MaxSourceBytes
	if limit > 0 && len(source) > limit {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("source is %d bytes, limit is %d", len(source), limit))
	}
	return nil
}

func (s *Service) classify(ctx context.Context, source string) lang.Program {
	_, span := observability.Tracer.Start(ctx, "lang.Classify")
	defer span.End()

	prog := s.classifier.Run(source)
	for _, cl := range prog.Statements {
		observability.StatementsClassifiedTotal.WithLabelValues(cl.Statement.Kind().String()).Inc()
	}
	span.SetAttributes(attribute.Int("nekoscript.lines", len(prog.Statements)))
	return prog
}

// Run classifies and interprets one script. Semantic problems are returned
// as error events; only an oversized source fails the call.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.Run", trace.WithAttributes(
		attribute.String("nekoscript.source", req.Name),
	))
	defer span.End()

	if err := s.checkSource(req.Source); err != nil {
		observability.RecordError(span, err)
		return RunResult{}, err
	}

	started := time.Now()
	prog := s.classify(ctx, req.Source)
	events := s.interpreter().Interpret(ctx, prog)
	elapsed := time.Since(started)

	for _, ev := range events {
		observability.OutputEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
	observability.OperationDuration.WithLabelValues(ModeInterpret).Observe(elapsed.Seconds())
	observability.RunsTotal.WithLabelValues(ModeInterpret).Inc()

	res := RunResult{
		ID:       uuid.NewString(),
		Events:   events,
		Lines:    len(prog.Statements),
		Duration: elapsed,
	}
	if name, open := prog.Unterminated(); open {
		res.Unterminated = name
	}
	span.SetAttributes(attribute.String("nekoscript.run_id", res.ID), attribute.Int("nekoscript.events", len(events)))

	raw, err := json.Marshal(events)
	if err != nil {
		raw = nil
	}
	s.record(store.RunRecord{
		ID:         res.ID,
		Mode:       ModeInterpret,
		SourceName: req.Name,
		LineCount:  res.Lines,
		EventCount: len(events),
		ErrorCount: interpret.Counts(events)[interpret.EventError],
		DurationMS: float64(elapsed.Microseconds()) / 1000,
		StartedAt:  started,
		Events:     raw,
	})
	return res, nil
}

// RunFile reads and interprets a script from disk.
func (s *Service) RunFile(ctx context.Context, path string) (RunResult, error) {
	data, err := readSource(path)
	if err != nil {
		return RunResult{}, err
	}
	return s.Run(ctx, RunRequest{Name: path, Source: string(data)})
}

// Transpile translates one script and, when enabled, parses the output with
// the JavaScript grammar. Syntax errors end up in the report, not in err.
func (s *Service) Transpile(ctx context.Context, req TranspileRequest) (TranspileResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.Transpile", trace.WithAttributes(
		attribute.String("nekoscript.source", req.Name),
	))
	defer span.End()

	if err := s.checkSource(req.Source); err != nil {
		observability.RecordError(span, err)
		return TranspileResult{}, err
	}

	started := time.Now()
	prog := s.classify(ctx, req.Source)
	code := s.transpiler.Transpile(prog)

	res := TranspileResult{ID: uuid.NewString(), Code: code, Lines: len(prog.Statements)}

	doVerify := s.Config.Transpile.VerifyEnabled()
	if req.Verify != nil {
		doVerify = *req.Verify
	}
	if doVerify {
		rep, err := s.verifyArtifact(ctx, verify.JavaScript, []byte(code))
		if err != nil {
			slog.Warn("verification skipped", "source", req.Name, "error", err)
		} else {
			res.Report = &rep
		}
	}

	elapsed := time.Since(started)
	observability.OperationDuration.WithLabelValues(ModeTranspile).Observe(elapsed.Seconds())
	observability.RunsTotal.WithLabelValues(ModeTranspile).Inc()

	errCount := 0
	if res.Report != nil {
		errCount = len(res.Report.Errors)
	}
	s.record(store.RunRecord{
		ID:         res.ID,
		Mode:       ModeTranspile,
		SourceName: req.Name,
		LineCount:  res.Lines,
		ErrorCount: errCount,
		DurationMS: float64(elapsed.Microseconds()) / 1000,
		StartedAt:  started,
	})
	return res, nil
}

// TranspileFile translates in and writes the result to out. An empty out
// writes next to in with a .js extension.
func (s *Service) TranspileFile(ctx context.Context, in, out string) (TranspileResult, string, error) {
	data, err := readSource(in)
	if err != nil {
		return TranspileResult{}, "", err
	}
	res, err := s.Transpile(ctx, TranspileRequest{Name: in, Source: string(data)})
	if err != nil {
		return TranspileResult{}, "", err
	}
	if out == "" {
		out = jsPath(in)
	}
	if err := writeArtifact(out, res.Code); err != nil {
		return res, "", err
	}
	return res, out, nil
}

func (s *Service) verifyArtifact(ctx context.Context, language verify.Language, content []byte) (verify.Report, error) {
	_, span := observability.Tracer.Start(ctx, "verify."+string(language))
	defer span.End()

	rep, err := s.verifier.Verify(language, content)
	if err != nil {
		observability.RecordError(span, err)
		return verify.Report{}, err
	}
	if n := len(rep.Errors); n > 0 {
		observability.VerifyErrorsTotal.WithLabelValues(string(language)).Add(float64(n))
	}
	span.SetAttributes(attribute.Bool("nekoscript.valid", rep.Valid))
	return rep, nil
}

func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(
				errors.New(errors.CodeNotFound, "source file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read source"), errors.CtxPath, path)
	}
	return data, nil
}

func jsPath(src string) string {
	return src[:len(src)-len(filepath.Ext(src))] + ".js"
}
