// # internal/ui/cli/commands.go
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	coreapp "nekoscript/internal/core/app"
	"nekoscript/internal/core/watcher"
	"nekoscript/internal/ui/report"
)

func cmdRun(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("run", s.stderr)
	watch := fs.Bool("watch", false, "Re-run when .neko files change")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return usageError{msg: "Vous devez spécifier un fichier à exécuter.", usage: "run <fichier.neko> [--watch]"}
	}
	file := s.abs(positional[0])

	return s.withService(ctx, func(svc *coreapp.Service) error {
		runOnce := func() error {
			res, err := svc.RunFile(ctx, file)
			if err != nil {
				return err
			}
			s.console.Events(res.Events)
			return nil
		}
		if !*watch {
			return runOnce()
		}
		return watchAndRepeat(ctx, s, svc, filepath.Dir(file), runOnce)
	})
}

// watchAndRepeat runs fn now and after every debounced change under dir.
func watchAndRepeat(ctx context.Context, s *session, svc *coreapp.Service, dir string, fn func() error) error {
	if err := fn(); err != nil {
		s.console.Error("Erreur: %s", describe(err))
	}
	changes := make(chan []string, 1)
	w, err := watcher.NewWatcher(svc.Config.Watch.Debounce, svc.Config.Watch.Exclude, func(paths []string) {
		select {
		case changes <- paths:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch([]string{dir}); err != nil {
		return err
	}
	s.console.Muted("En attente de modifications dans %s (Ctrl+C pour quitter)", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			s.console.Muted("Modifié: %v", relativeAll(dir, paths))
			if err := fn(); err != nil {
				s.console.Error("Erreur: %s", describe(err))
			}
		}
	}
}

func relativeAll(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(base, p); err == nil {
			p = rel
		}
		out = append(out, p)
	}
	return out
}

func cmdTranspile(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("transpile", s.stderr)
	out := fs.String("o", "", "Output file (default: <fichier>.js)")
	noVerify := fs.Bool("no-verify", false, "Skip JavaScript syntax verification")
	watch := fs.Bool("watch", false, "Re-translate when .neko files change")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return usageError{msg: "Vous devez spécifier un fichier à traduire.", usage: "transpile <fichier.neko> [-o sortie.js]"}
	}
	in := s.abs(positional[0])
	if *noVerify {
		off := false
		s.cfg.Transpile.Verify = &off
	}

	return s.withService(ctx, func(svc *coreapp.Service) error {
		once := func() error {
			res, written, err := svc.TranspileFile(ctx, in, s.abs(*out))
			if err != nil {
				return err
			}
			s.console.Syntax(positional[0], res.Report)
			s.console.Success("Fichier traduit: %s", written)
			return nil
		}
		if *watch {
			return watchAndRepeat(ctx, s, svc, filepath.Dir(in), once)
		}
		return once()
	})
}

func cmdBuild(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("build", s.stderr)
	out := fs.String("o", "", "Output directory (default: transpile.out_dir)")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	dir := ""
	if len(positional) > 0 {
		dir = s.abs(positional[0])
	}

	return s.withService(ctx, func(svc *coreapp.Service) error {
		res, err := svc.Build(ctx, dir, s.abs(*out))
		if err != nil {
			return err
		}
		for _, f := range res.Files {
			s.console.Info("%s -> %s", f.Source, f.Output)
			s.console.Syntax(f.Source, f.Report)
		}
		if len(res.Files) == 0 {
			s.console.Muted("Aucun fichier .neko trouvé dans %s", res.Root)
			return nil
		}
		s.console.Success("%d fichier(s) traduit(s) dans %s en %s", len(res.Files), res.OutDir, res.Took.Round(time.Millisecond))
		if n := res.Invalid(); n > 0 {
			s.console.Error("%d fichier(s) généré(s) avec des erreurs de syntaxe", n)
		}
		return nil
	})
}

func cmdInit(ctx context.Context, s *session, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	return s.withService(ctx, func(svc *coreapp.Service) error {
		res, err := svc.InitProject(s.abs(dir))
		if err != nil {
			return err
		}
		s.console.Success("Projet nekoScript initialisé dans %s", res.Root)
		for _, p := range res.Created {
			s.console.Muted("  créé: %s", p)
		}
		s.console.Info("Pour commencer: nekoscript run src/main.neko")
		return nil
	})
}

func cmdPublish(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("publish", s.stderr)
	ver := fs.String("version", "1.0.0", "Package version")
	author := fs.String("author", "", "Package author")
	desc := fs.String("description", "", "Package description")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return usageError{msg: "Vous devez spécifier un fichier à publier.", usage: "publish <fichier.neko>"}
	}
	return s.withService(ctx, func(svc *coreapp.Service) error {
		pkg, err := svc.Publish(ctx, coreapp.PublishRequest{
			Path:        s.abs(positional[0]),
			Version:     *ver,
			Author:      *author,
			Description: *desc,
		})
		if err != nil {
			return err
		}
		s.console.Success("Package %s v%s publié avec succès", pkg.Name, pkg.Version)
		return nil
	})
}

func cmdInstallPackage(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("librairie", s.stderr)
	dir := fs.String("dir", "", "Project directory (default: project root)")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return usageError{msg: "Vous devez spécifier un package à télécharger.", usage: "librairie <nom>"}
	}
	return s.withService(ctx, func(svc *coreapp.Service) error {
		target, err := svc.InstallPackage(ctx, positional[0], s.abs(*dir))
		if err != nil {
			return err
		}
		s.console.Success("Package installé: %s", target)
		return nil
	})
}

func cmdExportHTML(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("export-html", s.stderr)
	out := fs.String("o", "", "Output directory (default: working directory)")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 1 {
		return usageError{msg: "Vous devez spécifier un fichier à exporter.", usage: "export-html <fichier.neko>"}
	}
	outDir := s.abs(*out)
	if outDir == "" {
		outDir = s.cwd
	}
	return s.withService(ctx, func(svc *coreapp.Service) error {
		res, err := svc.ExportHTML(ctx, s.abs(positional[0]), outDir)
		if err != nil {
			return err
		}
		s.console.Syntax(res.Output, res.HTML)
		s.console.Syntax(res.Output, res.CSS)
		s.console.Success("Fichier exporté en HTML: %s", res.Output)
		return nil
	})
}

func cmdHistory(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("historique", s.stderr)
	limit := fs.Int("limit", 20, "Number of runs")
	tsv := fs.String("tsv", "", "Write the runs as TSV to this path")
	jsonPath := fs.String("json", "", "Write the runs as JSON to this path")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	return s.withService(ctx, func(svc *coreapp.Service) error {
		st := svc.Store()
		if st == nil {
			return fmt.Errorf("la base de données est désactivée (db.enabled = false)")
		}
		runs, err := st.ListRuns(ctx, *limit)
		if err != nil {
			return err
		}
		if *tsv != "" {
			if err := os.WriteFile(s.abs(*tsv), report.RenderRunsTSV(runs), 0o644); err != nil {
				return err
			}
		}
		if *jsonPath != "" {
			data, err := report.RenderRunsJSON(runs)
			if err != nil {
				return err
			}
			if err := os.WriteFile(s.abs(*jsonPath), data, 0o644); err != nil {
				return err
			}
		}
		s.console.Runs(runs)
		return nil
	})
}

func cmdInstallBase(ctx context.Context, s *session, _ []string) error {
	return s.withService(ctx, func(svc *coreapp.Service) error {
		s.console.Info("Installation de nekoScript...")
		installed, err := svc.InstallBaseLibraries()
		if err != nil {
			return err
		}
		for _, name := range installed {
			s.console.Muted("  %s", name)
		}
		s.console.Success("nekoScript installé avec succès dans %s", svc.Paths.Home)
		return nil
	})
}
