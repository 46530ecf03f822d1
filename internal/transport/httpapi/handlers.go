// # internal/transport/httpapi/handlers.go
package httpapi

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"nekoscript/internal/core/app"
	domainerrors "nekoscript/internal/core/errors"
	"nekoscript/internal/data/store"
	"nekoscript/internal/engine/verify"
)

const defaultRunsLimit = 50

type codeRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Verify *bool  `json:"verify"`
}

type transpileResponse struct {
	ID           string               `json:"id"`
	Code         string               `json:"code"`
	Lines        int                  `json:"lines"`
	Verified     bool                 `json:"verified"`
	Valid        bool                 `json:"valid"`
	SyntaxErrors []verify.SyntaxError `json:"syntax_errors"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		badRequest(w, "Code is required")
		return
	}
	res, err := s.svc.Run(r.Context(), app.RunRequest{Name: req.Name, Source: req.Code})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTranspile(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		badRequest(w, "Code is required")
		return
	}
	res, err := s.svc.Transpile(r.Context(), app.TranspileRequest{Name: req.Name, Source: req.Code, Verify: req.Verify})
	if err != nil {
		writeError(w, err)
		return
	}
	out := transpileResponse{ID: res.ID, Code: res.Code, Lines: res.Lines, SyntaxErrors: []verify.SyntaxError{}}
	if res.Report != nil {
		out.Verified = true
		out.Valid = res.Report.Valid
		if len(res.Report.Errors) > 0 {
			out.SyntaxErrors = res.Report.Errors
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) store(w http.ResponseWriter) (*store.Store, bool) {
	st := s.svc.Store()
	if st == nil {
		writeError(w, domainerrors.New(domainerrors.CodeNotSupported, "database is disabled"))
		return nil, false
	}
	return st, true
}

func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	tree, err := st.Tree(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tree == nil {
		tree = []*store.FileTreeItem{}
	}
	writeJSON(w, http.StatusOK, tree)
}

type entryRequest struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
	Path      string `json:"path"`
	Content   string `json:"content"`
}

// target joins directory and name; an explicit path wins.
func (e entryRequest) target() string {
	if e.Path != "" {
		return e.Path
	}
	dir := e.Directory
	if dir == "" {
		dir = "/"
	}
	return path.Join("/", dir, e.Name)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	s.createEntry(w, r, false)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	s.createEntry(w, r, true)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request, folder bool) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	var req entryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" && req.Path == "" {
		if folder {
			badRequest(w, "Folder name is required")
		} else {
			badRequest(w, "File name is required")
		}
		return
	}

	var (
		entry store.FileEntry
		err   error
	)
	if folder {
		entry, err = st.CreateFolder(r.Context(), req.target())
	} else {
		entry, err = st.CreateFile(r.Context(), req.target(), req.Content)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	p := r.URL.Query().Get("path")
	if p == "" {
		badRequest(w, "File path is required")
		return
	}
	entry, err := st.GetFile(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry.IsFolder {
		badRequest(w, "Cannot get content of a folder")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": entry.Content})
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	var req struct {
		Content *string `json:"content"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Content == nil {
		badRequest(w, "File content is required")
		return
	}
	entry, err := st.UpdateFile(r.Context(), r.PathValue("path"), *req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	if _, err := st.DeleteFile(r.Context(), r.PathValue("path")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	pkgs, err := st.ListPackages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if pkgs == nil {
		pkgs = []store.Package{}
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	var req store.Package
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.Version == "" || req.Content == "" {
		badRequest(w, "Name, version and content are required")
		return
	}
	pkg, err := st.CreatePackage(r.Context(), store.Package{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Author:      req.Author,
		Content:     req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	pkg, err := st.GetPackage(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	var upd store.PackageUpdate
	if !s.decodeJSON(w, r, &upd) {
		return
	}
	pkg, err := st.UpdatePackage(r.Context(), r.PathValue("name"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleDownloadPackage(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	pkg, err := st.IncrementDownloads(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	sections, err := st.DocumentationSections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if sections == nil {
		sections = []store.DocSection{}
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	libs, err := st.ListLibraries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if libs == nil {
		libs = []store.Library{}
	}
	writeJSON(w, http.StatusOK, libs)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	limit := defaultRunsLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := st.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	run, err := st.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIDocument)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.svc.Health(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
