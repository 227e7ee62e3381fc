package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mateogon/EpubConsolidator2/internal/catalog"
)

// handleListBooks lists every recorded conversion, newest first.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	list, err := s.orchestrator.Catalog().List(r.Context())
	if err != nil {
		jsonError(w, "failed to list conversions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []catalog.Conversion{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"books": list})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid book id", http.StatusBadRequest)
		return
	}
	conv, err := s.orchestrator.Catalog().Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		jsonError(w, "book not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load conversion: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

// handleDeleteBook removes a conversion record and the book's output
// directory. Directories outside the configured output root are never
// touched, whatever the catalog says.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid book id", http.StatusBadRequest)
		return
	}

	conv, err := s.orchestrator.Catalog().Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		jsonError(w, "book not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load conversion: "+err.Error(), http.StatusInternalServerError)
		return
	}

	filesDeleted := false
	if conv.OutputDir != "" && dirWithinRoot(conv.OutputDir, s.cfg.OutputDir) {
		if err := os.RemoveAll(conv.OutputDir); err != nil {
			s.log.Warn("failed to remove output dir", "dir", conv.OutputDir, "error", err)
		} else {
			filesDeleted = true
		}
	}

	if err := s.orchestrator.Catalog().Delete(r.Context(), id); err != nil {
		jsonError(w, "failed to delete conversion: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"deleted":       true,
		"files_deleted": filesDeleted,
	})
}

func dirWithinRoot(dir, root string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
