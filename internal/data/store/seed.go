// # internal/data/store/seed.go
package store

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	domainerrors "nekoscript/internal/core/errors"
)

//go:embed seeddata
var seedFS embed.FS

var seedDocs = []Documentation{
	{Title: `neko = ("message");`, Category: "fonctions", Content: "Affiche un message dans la console", CodeExample: `neko = ("Bonjour le monde !");`, Order: 1},
	{Title: "compteneko = x opération y;", Category: "fonctions", Content: "Effectue des opérations mathématiques", CodeExample: "compteneko = 5 plus 3;", Order: 2},
	{Title: `nekimg = ("url");`, Category: "fonctions", Content: "Affiche une image depuis une URL", Order: 3},
	{Title: "Discord.neko", Category: "librairies", Content: "Gestion des bots Discord", CodeExample: "nekimporter Discord.neko;", Order: 1},
	{Title: "Web.neko", Category: "librairies", Content: "Création de sites web", CodeExample: "nekimporter Web.neko;", Order: 2},
	{Title: "Jeu.neko", Category: "librairies", Content: "Développement de jeux", Order: 3},
	{Title: "$neko-script télécharger", Category: "terminal", Content: "Installe nekoScript", Order: 1},
	{Title: "$neko-script publish nom", Category: "terminal", Content: "Publie une bibliothèque", Order: 2},
	{Title: "$neko-script librairie nom", Category: "terminal", Content: "Télécharge une bibliothèque", Order: 3},
}

// BaseLibraries returns the bundled libraries keyed by file name.
func BaseLibraries() map[string]string {
	return readSeedDir("seeddata/libs")
}

// SampleFiles returns the bundled workspace files keyed by rooted path.
func SampleFiles() map[string]string {
	out := make(map[string]string)
	_ = fs.WalkDir(seedFS, "seeddata/files", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := seedFS.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		out[strings.TrimPrefix(p, "seeddata/files")] = string(data)
		return nil
	})
	return out
}

func readSeedDir(dir string) map[string]string {
	out := make(map[string]string)
	entries, err := seedFS.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		data, err := seedFS.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out[e.Name()] = string(data)
	}
	return out
}

// Seed installs the base libraries, the sample workspace and the
// documentation. Existing rows are left alone, so Seed is safe on every start.
func (s *Store) Seed(ctx context.Context) error {
	libs := BaseLibraries()
	for _, name := range sortedKeys(libs) {
		if _, found, err := s.LookupLibrary(ctx, name); err != nil {
			return err
		} else if found {
			continue
		}
		if err := s.PutLibrary(ctx, Library{Name: name, Content: libs[name], Builtin: true}); err != nil {
			return err
		}
	}

	files := SampleFiles()
	for _, p := range sortedKeys(files) {
		if _, err := s.CreateFile(ctx, p, files[p]); err != nil && !domainerrors.IsCode(err, domainerrors.CodeConflict) {
			return err
		}
	}

	docs, err := s.ListDocumentation(ctx)
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		return nil
	}
	for _, d := range seedDocs {
		if _, err := s.AddDocumentation(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
