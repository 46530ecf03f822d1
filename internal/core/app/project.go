// # internal/core/app/project.go
package app

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"nekoscript/internal/core/config"
	"nekoscript/internal/core/errors"
	"nekoscript/internal/core/ports"
	"nekoscript/internal/data/store"
)

//go:embed templates
var templateFS embed.FS

var projectTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.neko.tmpl", "templates/*.md.tmpl"))

// ProjectManifest is the neko.config.json written by InitProject.
type ProjectManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Main         string            `json:"main"`
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
}

type InitResult struct {
	Root    string   `json:"root"`
	Created []string `json:"created"`
}

// InitProject scaffolds a project in dir. Existing files are never
// overwritten; an existing src/main.neko is a conflict.
func (s *Service) InitProject(dir string) (InitResult, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return InitResult{}, err
	}
	mainPath := filepath.Join(root, "src", "main.neko")
	if _, err := os.Stat(mainPath); err == nil {
		return InitResult{}, errors.AddContext(
			errors.New(errors.CodeConflict, "project already initialized"), errors.CtxPath, mainPath)
	}

	name := filepath.Base(root)
	manifest := ProjectManifest{
		Name:        name,
		Version:     "1.0.0",
		Description: "Un projet nekoScript",
		Main:        "src/main.neko",
		Scripts: map[string]string{
			"start": "nekoscript run src/main.neko",
			"build": "nekoscript build",
		},
		Dependencies: map[string]string{},
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return InitResult{}, err
	}

	data := struct{ Name, Date string }{Name: name, Date: time.Now().Format("02/01/2006")}
	mainSrc, err := render("main.neko.tmpl", data)
	if err != nil {
		return InitResult{}, err
	}
	readme, err := render("README.md.tmpl", data)
	if err != nil {
		return InitResult{}, err
	}

	res := InitResult{Root: root}
	if err := os.MkdirAll(filepath.Join(root, "libs"), 0o755); err != nil {
		return res, err
	}
	res.Created = append(res.Created, filepath.Join(root, "libs"))

	files := []struct{ path, content string }{
		{mainPath, mainSrc},
		{filepath.Join(root, "neko.config.json"), string(manifestJSON) + "\n"},
		{filepath.Join(root, config.FileName), defaultProjectConfig},
		{filepath.Join(root, "README.md"), readme},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		if err := writeArtifact(f.path, f.content); err != nil {
			return res, err
		}
		res.Created = append(res.Created, f.path)
	}
	return res, nil
}

const defaultProjectConfig = `version = 1

[transpile]
out_dir = "dist"

[watch]
debounce = "300ms"
`

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := projectTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "render "+name)
	}
	return buf.String(), nil
}

// PublishRequest carries package metadata; the content comes from a file.
type PublishRequest struct {
	Path        string
	Version     string
	Author      string
	Description string
}

// Publish stores a .neko file as a package named after the file.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (store.Package, error) {
	st, err := s.registry()
	if err != nil {
		return store.Package{}, err
	}
	if !strings.HasSuffix(req.Path, ".neko") {
		return store.Package{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "package must have the .neko extension"), errors.CtxPath, req.Path)
	}
	content, err := readSource(req.Path)
	if err != nil {
		return store.Package{}, err
	}
	version := req.Version
	if version == "" {
		version = "1.0.0"
	}
	return st.PublishPackage(ctx, store.Package{
		Name:        filepath.Base(req.Path),
		Description: req.Description,
		Version:     version,
		Author:      req.Author,
		Content:     string(content),
	})
}

// InstallPackage copies a published package into <projectDir>/libs and
// counts the download. The name may omit the .neko extension.
func (s *Service) InstallPackage(ctx context.Context, name, projectDir string) (string, error) {
	st, err := s.registry()
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", errors.New(errors.CodeValidationError, "invalid package name")
	}
	if !strings.HasSuffix(name, ".neko") {
		name += ".neko"
	}
	pkg, err := st.GetPackage(ctx, name)
	if err != nil {
		return "", err
	}
	if projectDir == "" {
		projectDir = s.Paths.ProjectRoot
	}
	target := filepath.Join(projectDir, "libs", pkg.Name)
	if err := writeArtifact(target, pkg.Content); err != nil {
		return "", err
	}
	if _, err := st.IncrementDownloads(ctx, pkg.Name); err != nil {
		return target, err
	}
	return target, nil
}

// InstallBaseLibraries writes the bundled libraries under the neko home.
func (s *Service) InstallBaseLibraries() ([]string, error) {
	return store.DirLibraries{Dir: s.Paths.LibsDir}.Install(store.BaseLibraries())
}

func (s *Service) registry() (ports.PackageRegistry, error) {
	if s.store == nil {
		return nil, errors.New(errors.CodeNotSupported, "database is disabled (db.enabled = false)")
	}
	return s.store, nil
}
