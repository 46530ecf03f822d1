package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nekoscript/internal/core/config"
	"nekoscript/internal/core/errors"
	"nekoscript/internal/data/store"
	"nekoscript/internal/engine/interpret"
)

type testEnv struct {
	svc    *Service
	cwd    string
	dbPath string
}

func newTestService(t *testing.T, mutate func(*config.Config)) testEnv {
	t.Helper()
	cwd := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.Home = filepath.Join(t.TempDir(), "home")
	cfg.Paths.ProjectRoot = cwd
	cfg.Queue.FlushInterval = 10 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	dbPath := filepath.Join(t.TempDir(), "neko.db")
	st, err := store.Open(dbPath, store.Options{BusyTimeout: time.Second})
	require.NoError(t, err)

	svc, err := New(context.Background(), cfg, Options{Cwd: cwd, Store: st})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return testEnv{svc: svc, cwd: cwd, dbPath: dbPath}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunProducesEventsAndPersistsRecord(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()

	res, err := env.svc.Run(ctx, RunRequest{Name: "inline", Source: "neko = (\"Bonjour\");\ncompteneko = 2 plus 3;\n"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.Len(t, res.Events, 2)
	assert.Equal(t, interpret.EventStandard, res.Events[0].Kind)
	assert.Equal(t, "Bonjour", res.Events[0].Text)
	assert.Equal(t, "compteneko: 5", res.Events[1].Text)

	require.NoError(t, env.svc.Close(ctx))

	st, err := store.Open(env.dbPath, store.Options{})
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.GetRun(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeInterpret, rec.Mode)
	assert.Equal(t, 2, rec.EventCount)
	assert.Equal(t, 0, rec.ErrorCount)

	var events []interpret.OutputEvent
	require.NoError(t, json.Unmarshal(rec.Events, &events))
	assert.Equal(t, res.Events, events)
}

func TestRunRejectsOversizedSource(t *testing.T) {
	env := newTestService(t, func(c *config.Config) { c.Interpret.MaxSourceBytes = 8 })

	_, err := env.svc.Run(context.Background(), RunRequest{Source: strings.Repeat("x", 9)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestRunReportsUnterminatedFunction(t *testing.T) {
	env := newTestService(t, nil)
	res, err := env.svc.Run(context.Background(), RunRequest{Source: "fonction f(a) {\n  neko = (a);\n"})
	require.NoError(t, err)
	assert.Equal(t, "f", res.Unterminated)
	assert.True(t, interpret.HasErrors(res.Events))
}

func TestImportResolvesProjectLibsFirst(t *testing.T) {
	env := newTestService(t, nil)
	writeFile(t, filepath.Join(env.cwd, "libs", "Maths.neko"), "fonction carre(x) {\n}\n")

	res, err := env.svc.Run(context.Background(), RunRequest{Source: "nekimporter Maths.neko;\nnekimporter Inconnu.neko;\n"})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "Bibliothèque Maths.neko importée", res.Events[0].Text)
	assert.Contains(t, res.Events[1].Text, "introuvable")
}

func TestSeededLibrariesResolveFromStore(t *testing.T) {
	env := newTestService(t, nil)
	res, err := env.svc.Run(context.Background(), RunRequest{Source: "nekimporter Discord.neko;"})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Bibliothèque Discord.neko importée", res.Events[0].Text)
}

func TestLibraryChainOrder(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()
	chain := env.svc.libraryChain()

	src, found, err := chain.LookupLibrary(ctx, "Discord.neko")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, "// maison", src)

	writeFile(t, filepath.Join(env.svc.Paths.LibsDir, "Discord.neko"), "// maison")
	src, _, err = chain.LookupLibrary(ctx, "Discord.neko")
	require.NoError(t, err)
	assert.Equal(t, "// maison", src)

	writeFile(t, filepath.Join(env.svc.Paths.ProjectRoot, "libs", "Discord.neko"), "// projet")
	src, _, err = chain.LookupLibrary(ctx, "Discord.neko")
	require.NoError(t, err)
	assert.Equal(t, "// projet", src)
}

func TestSetTraceBodies(t *testing.T) {
	env := newTestService(t, nil)
	src := "fonction f(a) {\n  neko = (a);\n}\n"

	res, err := env.svc.Run(context.Background(), RunRequest{Source: src})
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)

	env.svc.SetTraceBodies(true)
	res, err = env.svc.Run(context.Background(), RunRequest{Source: src})
	require.NoError(t, err)
	assert.Len(t, res.Events, 3)
}

func TestTranspileVerifiesOutput(t *testing.T) {
	env := newTestService(t, nil)
	res, err := env.svc.Transpile(context.Background(), TranspileRequest{Source: "neko = (\"a\" plus \"b\");\n"})
	require.NoError(t, err)
	assert.Contains(t, res.Code, `neko("a" + "b");`)
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Valid)

	off := false
	res, err = env.svc.Transpile(context.Background(), TranspileRequest{Source: "neko = (\"a\");", Verify: &off})
	require.NoError(t, err)
	assert.Nil(t, res.Report)
}

func TestTranspileFileDefaultsToSiblingJS(t *testing.T) {
	env := newTestService(t, nil)
	in := filepath.Join(env.cwd, "main.neko")
	writeFile(t, in, "compteneko = 1 plus 1;\n")

	_, out, err := env.svc.TranspileFile(context.Background(), in, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.cwd, "main.js"), out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "(1 + 1)")

	_, _, err = env.svc.TranspileFile(context.Background(), filepath.Join(env.cwd, "absent.neko"), "")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestBuildSkipsExcludedAndOutput(t *testing.T) {
	env := newTestService(t, nil)
	writeFile(t, filepath.Join(env.cwd, "src", "main.neko"), "neko = (\"a\");\n")
	writeFile(t, filepath.Join(env.cwd, "src", "lib", "outil.neko"), "neko = (\"b\");\n")
	writeFile(t, filepath.Join(env.cwd, "node_modules", "x", "y.neko"), "neko = (\"c\");\n")
	writeFile(t, filepath.Join(env.cwd, "dist", "old.neko"), "neko = (\"d\");\n")

	res, err := env.svc.Build(context.Background(), env.cwd, "")
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join("src", "lib", "outil.neko"), res.Files[0].Source)
	assert.Equal(t, filepath.Join("src", "main.neko"), res.Files[1].Source)
	assert.Zero(t, res.Invalid())
	assert.FileExists(t, filepath.Join(env.cwd, "dist", "src", "main.js"))
	assert.FileExists(t, filepath.Join(env.cwd, "dist", "src", "lib", "outil.js"))
}

func TestBuildMissingDirectory(t *testing.T) {
	env := newTestService(t, nil)
	_, err := env.svc.Build(context.Background(), filepath.Join(env.cwd, "absent"), "")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestInitProject(t *testing.T) {
	env := newTestService(t, nil)
	dir := filepath.Join(env.cwd, "chat")

	res, err := env.svc.InitProject(dir)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(dir, "libs"))
	assert.FileExists(t, filepath.Join(dir, "README.md"))
	assert.FileExists(t, filepath.Join(dir, config.FileName))
	assert.NotEmpty(t, res.Created)

	raw, err := os.ReadFile(filepath.Join(dir, "neko.config.json"))
	require.NoError(t, err)
	var manifest ProjectManifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, "chat", manifest.Name)
	assert.Equal(t, "src/main.neko", manifest.Main)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)

	main, err := os.ReadFile(filepath.Join(dir, "src", "main.neko"))
	require.NoError(t, err)
	out, err := env.svc.Run(context.Background(), RunRequest{Source: string(main)})
	require.NoError(t, err)
	assert.False(t, interpret.HasErrors(out.Events))

	_, err = env.svc.InitProject(dir)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))
}

func TestPublishAndInstallPackage(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()
	src := filepath.Join(env.cwd, "Outils.neko")
	writeFile(t, src, "fonction aide() {\n}\n")

	pkg, err := env.svc.Publish(ctx, PublishRequest{Path: src, Author: "Zoé"})
	require.NoError(t, err)
	assert.Equal(t, "Outils.neko", pkg.Name)
	assert.Equal(t, "1.0.0", pkg.Version)

	target, err := env.svc.InstallPackage(ctx, "Outils", env.cwd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.cwd, "libs", "Outils.neko"), target)

	got, err := env.svc.Store().GetPackage(ctx, "Outils.neko")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Downloads)

	_, err = env.svc.InstallPackage(ctx, "Absent", env.cwd)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	txt := filepath.Join(env.cwd, "notes.txt")
	writeFile(t, txt, "x")
	_, err = env.svc.Publish(ctx, PublishRequest{Path: txt})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestPublishWithoutDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.Home = t.TempDir()
	cfg.DB.Enabled = false
	svc, err := New(context.Background(), cfg, Options{Cwd: t.TempDir()})
	require.NoError(t, err)
	defer svc.Close(context.Background())

	_, err = svc.Publish(context.Background(), PublishRequest{Path: "x.neko"})
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	assert.Equal(t, "disabled", svc.Health(context.Background()).Components["store"])
}

func TestInstallBaseLibraries(t *testing.T) {
	env := newTestService(t, nil)
	installed, err := env.svc.InstallBaseLibraries()
	require.NoError(t, err)
	assert.Contains(t, installed, filepath.Join(env.svc.Paths.LibsDir, "Discord.neko"))
	assert.FileExists(t, filepath.Join(env.svc.Paths.LibsDir, "Web.neko"))
}

func TestExportHTML(t *testing.T) {
	env := newTestService(t, nil)
	src := filepath.Join(env.cwd, "page.neko")
	writeFile(t, src, "neko = (\"<b>chat</b>\");\n")

	res, err := env.svc.ExportHTML(context.Background(), src, env.cwd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.cwd, "page.html"), res.Output)
	require.NotNil(t, res.HTML)
	require.NotNil(t, res.CSS)
	assert.True(t, res.CSS.Valid)

	page, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Export nekoScript - page</title>")
	assert.Contains(t, string(page), "&lt;b&gt;chat&lt;/b&gt;")
	assert.NotContains(t, string(page), "<b>chat</b>")
}

func TestHealth(t *testing.T) {
	env := newTestService(t, nil)
	status := env.svc.Health(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok", status.Components["store"])
	assert.Contains(t, status.Components, "run_queue")
}

type flakySink struct {
	fail  atomic.Bool
	mu    sync.Mutex
	saved []string
}

func (f *flakySink) SaveRuns(_ context.Context, records []store.RunRecord) error {
	if f.fail.Load() {
		return os.ErrPermission
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		f.saved = append(f.saved, r.ID)
	}
	return nil
}

func (f *flakySink) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

func TestRecorderSpoolsFailedBatches(t *testing.T) {
	sink := &flakySink{}
	sink.fail.Store(true)
	rec, err := newRunRecorder(config.Queue{Capacity: 4, BatchSize: 4, FlushInterval: 10 * time.Millisecond, Spool: true},
		sink, filepath.Join(t.TempDir(), "spool.db"))
	require.NoError(t, err)

	rec.Enqueue(store.RunRecord{ID: "r1", Mode: ModeInterpret})
	require.Eventually(t, func() bool {
		n, err := rec.spool.PendingCount(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink.fail.Store(false)
	require.Eventually(t, func() bool {
		return len(sink.ids()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"r1"}, sink.ids())

	require.NoError(t, rec.Close(context.Background()))
}

func TestRecorderDrainsOnClose(t *testing.T) {
	sink := &flakySink{}
	rec, err := newRunRecorder(config.Queue{Capacity: 8, BatchSize: 2, FlushInterval: time.Hour}, sink, "")
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		rec.Enqueue(store.RunRecord{ID: id})
	}
	require.NoError(t, rec.Close(context.Background()))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, sink.ids())
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, retryBaseDelay, backoffDelay(0))
	assert.Equal(t, 2*retryBaseDelay, backoffDelay(2))
	assert.Equal(t, retryMaxDelay, backoffDelay(20))
}
