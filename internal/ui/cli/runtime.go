// # internal/ui/cli/runtime.go
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	coreapp "nekoscript/internal/core/app"
	"nekoscript/internal/core/config"
	domainerrors "nekoscript/internal/core/errors"
	"nekoscript/internal/shared/version"
	"nekoscript/internal/ui/report"
)

// Run is the process entry point. It returns the exit code.
func Run(args []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to detect working directory:", err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWith(ctx, session{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, cwd: cwd}, args)
}

// session carries the process environment so commands can run in tests.
type session struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cwd    string

	opts    globalOptions
	console *report.Console
	cfg     *config.Config
	cfgPath string
}

type command struct {
	run func(ctx context.Context, s *session, args []string) error
	// interactive commands log to a file instead of the terminal.
	interactive bool
	// standalone commands need neither config nor service.
	standalone bool
}

func commands() map[string]command {
	return map[string]command{
		"run":         {run: cmdRun},
		"transpile":   {run: cmdTranspile},
		"build":       {run: cmdBuild},
		"repl":        {run: cmdREPL, interactive: true},
		"serve":       {run: cmdServe},
		"init":        {run: cmdInit},
		"publish":     {run: cmdPublish},
		"librairie":   {run: cmdInstallPackage},
		"export-html": {run: cmdExportHTML},
		"historique":  {run: cmdHistory},
		"télécharger": {run: cmdInstallBase},
		"telecharger": {run: cmdInstallBase},
		"version":     {run: cmdVersion, standalone: true},
		"help":        {run: cmdHelp, standalone: true},
		"aide":        {run: cmdHelp, standalone: true},
	}
}

func runWith(ctx context.Context, s session, args []string) int {
	opts, err := parseGlobal(args, s.stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	s.opts = opts
	s.console = report.NewConsole(s.stdout)

	if opts.version {
		return exitCode(cmdVersion(ctx, &s, nil))
	}

	name := "repl"
	rest := opts.args
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}
	cmd, ok := commands()[name]
	if !ok {
		report.NewConsole(s.stderr).Error("Commande inconnue: %s", name)
		fmt.Fprint(s.stderr, helpText)
		return 2
	}

	cleanupLogs := configureLogging(cmd.interactive, opts.verbose, name == "serve", s.stderr)
	defer cleanupLogs()

	if !cmd.standalone {
		s.cfg, s.cfgPath, err = loadConfig(opts.configPath, s.cwd)
		if err != nil {
			report.NewConsole(s.stderr).Error("Erreur de configuration: %v", err)
			return 1
		}
	}

	if err := cmd.run(ctx, &s, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var usage usageError
		if errors.As(err, &usage) {
			errConsole := report.NewConsole(s.stderr)
			errConsole.Error("Erreur: %s", usage.msg)
			errConsole.Muted("Utilisation: nekoscript %s", usage.usage)
			return 2
		}
		if errors.Is(err, context.Canceled) {
			return 0
		}
		report.NewConsole(s.stderr).Error("Erreur: %s", describe(err))
		slog.Debug("command failed", "command", name, "error", err)
		return 1
	}
	return 0
}

type usageError struct {
	msg   string
	usage string
}

func (e usageError) Error() string { return e.msg }

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

// describe prefers the domain message over the decorated error string.
func describe(err error) string {
	var de *domainerrors.DomainError
	if errors.As(err, &de) {
		if p, ok := de.Context[domainerrors.CtxPath]; ok {
			return fmt.Sprintf("%s (%v)", de.Message, p)
		}
		return de.Message
	}
	return err.Error()
}

func (s *session) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.cwd, p)
}

func (s *session) newService(ctx context.Context) (*coreapp.Service, error) {
	return coreapp.New(ctx, s.cfg, coreapp.Options{Cwd: s.cwd})
}

// withService opens the service for the duration of fn.
func (s *session) withService(ctx context.Context, fn func(*coreapp.Service) error) error {
	svc, err := s.newService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(context.WithoutCancel(ctx)); cerr != nil {
			slog.Warn("service close failed", "error", cerr)
		}
	}()
	return fn(svc)
}

// loadConfig reads an explicit path, or discovers neko.toml from cwd and
// falls back to defaults.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		config.ApplyEnvOverrides(cfg)
		return cfg, path, config.Validate(cfg)
	}
	if found, ok := config.Discover(cwd); ok {
		cfg, _, err := config.LoadOrDefault(found)
		return cfg, found, err
	}
	cfg := config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	return cfg, "", config.Validate(cfg)
}

func configureLogging(uiMode, verbose, server bool, stderr io.Writer) func() {
	logLevel := slog.LevelWarn
	if server {
		logLevel = slog.LevelInfo
	}
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "nekoscript", "nekoscript.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "nekoscript", "nekoscript.log")
	}

	return "nekoscript.log"
}

func cmdVersion(_ context.Context, s *session, _ []string) error {
	fmt.Fprintf(s.stdout, "nekoScript v%s\n", version.Version)
	return nil
}

func cmdHelp(_ context.Context, s *session, _ []string) error {
	fmt.Fprint(s.stdout, helpText)
	return nil
}
