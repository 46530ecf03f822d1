package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "nekoscript/internal/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "neko.db"), Options{BusyTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsDirectoryAndEmptyPath(t *testing.T) {
	_, err := Open("", Options{})
	require.Error(t, err)

	_, err = Open(t.TempDir(), Options{})
	require.Error(t, err)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neko.db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neko.db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	db, err := sql.Open(driverName, "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	assert.ErrorContains(t, EnsureSchema(db), "newer than supported")
}

func TestLibraries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, found, err := s.LookupLibrary(ctx, "Web.neko")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.PutLibrary(ctx, Library{Name: "Web.neko", Content: "v1"}))
	require.NoError(t, s.PutLibrary(ctx, Library{Name: "Web.neko", Content: "v2", Builtin: true}))

	content, found, err := s.LookupLibrary(ctx, "Web.neko")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", content)

	libs, err := s.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, libs, 1)
	assert.True(t, libs[0].Builtin)
	assert.Empty(t, libs[0].Content)

	err = s.PutLibrary(ctx, Library{Name: "  "})
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
}

func TestPackagesLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p, err := s.PublishPackage(ctx, Package{Name: "chat.neko", Version: "1.0.0", Content: "neko = (\"miaou\");"})
	require.NoError(t, err)
	assert.Equal(t, defaultAuthor, p.Author)
	assert.Zero(t, p.Downloads)

	_, err = s.CreatePackage(ctx, Package{Name: "chat.neko", Version: "1.0.0", Content: "x"})
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConflict))

	p, err = s.IncrementDownloads(ctx, "chat.neko")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Downloads)

	p, err = s.PublishPackage(ctx, Package{Name: "chat.neko", Version: "1.1.0", Author: "Mimi", Content: "y"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", p.Version)
	assert.Equal(t, "Mimi", p.Author)
	assert.Equal(t, 1, p.Downloads, "republishing keeps the counter")

	desc := "bot helpers"
	p, err = s.UpdatePackage(ctx, "chat.neko", PackageUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, p.Description)
	assert.Equal(t, "y", p.Content)

	_, err = s.PublishPackage(ctx, Package{Name: "zzz", Version: "0.1.0", Content: "z"})
	require.NoError(t, err)
	list, err := s.ListPackages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chat.neko", list[0].Name, "most downloaded first")
	assert.Empty(t, list[0].Content)

	_, err = s.GetPackage(ctx, "absent")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
	_, err = s.IncrementDownloads(ctx, "absent")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
	_, err = s.PublishPackage(ctx, Package{Name: "x", Content: "c"})
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
}

func TestFilesLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	f, err := s.CreateFile(ctx, "src/game/main.neko", "neko = (\"a\");")
	require.NoError(t, err)
	assert.Equal(t, "/src/game/main.neko", f.Path)
	assert.Equal(t, "main.neko", f.Name)
	assert.Equal(t, "/src/game", f.ParentPath)

	dir, err := s.GetFile(ctx, "/src")
	require.NoError(t, err)
	assert.True(t, dir.IsFolder)

	_, err = s.CreateFile(ctx, "/src/game/main.neko", "")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConflict))

	_, err = s.CreateFile(ctx, "/src/game/main.neko/inner.neko", "")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConflict))

	f, err = s.UpdateFile(ctx, "/src/game/main.neko", "neko = (\"b\");")
	require.NoError(t, err)
	assert.Equal(t, "neko = (\"b\");", f.Content)

	_, err = s.UpdateFile(ctx, "/src", "x")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound), "folders have no content")

	_, err = s.CreateFolder(ctx, "/assets")
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, "/srcx.neko", "")
	require.NoError(t, err)

	tree, err := s.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, "assets", tree[0].Name)
	assert.Equal(t, "src", tree[1].Name)
	assert.Equal(t, "srcx.neko", tree[2].Name)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, "main.neko", tree[1].Children[0].Children[0].Name)

	n, err := s.DeleteFile(ctx, "/src")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.GetFile(ctx, "/srcx.neko")
	require.NoError(t, err, "sibling sharing the prefix survives")

	_, err = s.DeleteFile(ctx, "/src")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))

	_, err = s.GetFile(ctx, "../etc/passwd")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
	_, err = s.CreateFolder(ctx, "/")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
}

func TestDocumentationGrouping(t *testing.T) {
	docs := []Documentation{
		{Title: "a", Category: "fonctions", Content: "A"},
		{Title: "b", Category: "terminal", Content: "B"},
		{Title: "c", Category: "fonctions", Content: "C"},
		{Title: "d", Category: "divers", Content: "D"},
	}
	sections := GroupDocumentation(docs)
	require.Len(t, sections, 3)
	assert.Equal(t, "fonctions", sections[0].Title)
	assert.Equal(t, "primary", sections[0].Color)
	assert.Len(t, sections[0].Items, 2)
	assert.Equal(t, "accent", sections[1].Color)
	assert.Equal(t, "primary", sections[2].Color)
	assert.Equal(t, "C", sections[0].Items[1].Description)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	events := json.RawMessage(`[{"type":"standard","text":"Bonjour","line":0}]`)
	require.NoError(t, s.SaveRuns(ctx, []RunRecord{
		{ID: "a", Mode: "interpret", LineCount: 1, EventCount: 1, StartedAt: base, Events: events},
		{ID: "b", Mode: "transpile", LineCount: 3, StartedAt: base.Add(time.Minute)},
	}))

	list, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Nil(t, list[0].Events)

	got, err := s.GetRun(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, string(events), string(got.Events))
	assert.True(t, base.Equal(got.StartedAt))

	_, err = s.GetRun(ctx, "zz")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))

	err = s.SaveRuns(ctx, []RunRecord{{Mode: "interpret"}})
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Seed(ctx))
	require.NoError(t, s.PutLibrary(ctx, Library{Name: "Discord.neko", Content: "custom", Builtin: true}))
	require.NoError(t, s.Seed(ctx))

	content, found, err := s.LookupLibrary(ctx, "Discord.neko")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "custom", content)

	_, found, err = s.LookupLibrary(ctx, "Web.neko")
	require.NoError(t, err)
	assert.True(t, found)

	main, err := s.GetFile(ctx, "/src/main.neko")
	require.NoError(t, err)
	assert.Contains(t, main.Content, "compteneko = 10 plus 5;")

	docs, err := s.ListDocumentation(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, len(seedDocs))
}

func TestDirLibrariesAndChain(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "libs")
	libs := DirLibraries{Dir: dir}

	_, found, err := libs.LookupLibrary(ctx, "Web.neko")
	require.NoError(t, err)
	assert.False(t, found)

	written, err := libs.Install(BaseLibraries())
	require.NoError(t, err)
	assert.Len(t, written, 2)
	_, err = os.Stat(filepath.Join(dir, "Discord.neko"))
	require.NoError(t, err)

	content, found, err := libs.LookupLibrary(ctx, "Web.neko")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, content, "fonction nekPage(titre, contenu) {")

	_, found, err = libs.LookupLibrary(ctx, "../Web.neko")
	require.NoError(t, err)
	assert.False(t, found)

	s := openTestStore(t)
	require.NoError(t, s.PutLibrary(ctx, Library{Name: "Jeu.neko", Content: "jeu"}))
	chain := Chain{s, libs}
	content, found, err = chain.LookupLibrary(ctx, "Jeu.neko")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "jeu", content)
	_, found, err = chain.LookupLibrary(ctx, "Discord.neko")
	require.NoError(t, err)
	assert.True(t, found)
}
