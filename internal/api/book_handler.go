package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/InRunning/epub-online/internal/book"
	"github.com/InRunning/epub-online/internal/cache"
	"github.com/InRunning/epub-online/internal/library"
	"github.com/InRunning/epub-online/pkg/types"
)

// BookHandler handles book-related API endpoints
type BookHandler struct {
	repo        book.Repository
	library     *library.Service
	bufCache    *cache.Cache
	maxUploadMB int
}

// NewBookHandler creates a new book handler
func NewBookHandler(repo book.Repository, libraryService *library.Service, bufCache *cache.Cache, maxUploadMB int) *BookHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &BookHandler{
		repo:        repo,
		library:     libraryService,
		bufCache:    bufCache,
		maxUploadMB: maxUploadMB,
	}
}

// Books handles /api/v1/books: POST uploads a book, GET lists them
func (h *BookHandler) Books(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.uploadBook(w, r)
	case http.MethodGet:
		h.listBooks(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// uploadBook handles POST /api/v1/books
func (h *BookHandler) uploadBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(int64(h.maxUploadMB) << 20); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".epub" {
		respondError(w, "Only EPUB files are supported", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}
	author := r.FormValue("author")

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	newBook, err := h.library.AddBook(r.Context(), header.Filename, title, author, data)
	if err != nil {
		respondError(w, "Failed to save book", http.StatusInternalServerError)
		return
	}

	respondJSON(w, newBook, http.StatusCreated)
}

// listBooks handles GET /api/v1/books
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.repo.ListBooks(r.Context())
	if err != nil {
		respondError(w, "Failed to list books", http.StatusInternalServerError)
		return
	}
	respondJSON(w, books, http.StatusOK)
}

// GetBook handles GET /api/v1/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := extractIDFromPath(r.URL.Path, "/api/v1/books/")
	if bookID == "" {
		respondError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	meta, err := h.repo.GetBook(r.Context(), bookID)
	if err != nil {
		respondError(w, "Book not found", http.StatusNotFound)
		return
	}
	respondJSON(w, meta, http.StatusOK)
}

// DeleteBook handles DELETE /api/v1/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := extractIDFromPath(r.URL.Path, "/api/v1/books/")
	if bookID == "" {
		respondError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	if _, err := h.repo.GetBook(r.Context(), bookID); err != nil {
		respondError(w, "Book not found", http.StatusNotFound)
		return
	}

	if err := h.library.DeleteBook(r.Context(), bookID); err != nil {
		respondError(w, "Failed to delete book", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBookFile handles GET /api/v1/books/{id}/file
// Serves the raw EPUB bytes for the rendering client, via the cache.
func (h *BookHandler) GetBookFile(w http.ResponseWriter, r *http.Request) {
	bookID := extractIDFromPath(r.URL.Path, "/api/v1/books/")
	if bookID == "" {
		respondError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	meta, data, err := h.library.OpenBook(r.Context(), bookID)
	if err != nil {
		respondError(w, "Book not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/epub+zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+meta.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PreloadBook handles POST /api/v1/books/{id}/preload
// Best-effort: the response reports the outcome, the status is 200
// even when the preload failed.
func (h *BookHandler) PreloadBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bookID := extractIDFromPath(r.URL.Path, "/api/v1/books/")
	if bookID == "" {
		respondError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	res := h.library.PreloadBook(r.Context(), bookID)
	respondJSON(w, res, http.StatusOK)
}

// Progress handles GET and PUT of /api/v1/books/{id}/progress
func (h *BookHandler) Progress(w http.ResponseWriter, r *http.Request) {
	bookID := extractIDFromPath(r.URL.Path, "/api/v1/books/")
	if bookID == "" {
		respondError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		progress, err := h.repo.GetProgress(r.Context(), bookID)
		if err != nil {
			// No progress yet: start of the book
			progress = &types.ReadingProgress{BookID: bookID}
		}
		respondJSON(w, progress, http.StatusOK)

	case http.MethodPut, http.MethodPost:
		var progress types.ReadingProgress
		if err := json.NewDecoder(r.Body).Decode(&progress); err != nil {
			respondError(w, "Invalid progress payload", http.StatusBadRequest)
			return
		}
		if progress.Percentage < 0 || progress.Percentage > 100 {
			respondError(w, "Percentage must be between 0 and 100", http.StatusBadRequest)
			return
		}
		progress.BookID = bookID
		progress.UpdatedAt = time.Now()

		if err := h.repo.SaveProgress(r.Context(), &progress); err != nil {
			respondError(w, "Failed to save progress", http.StatusInternalServerError)
			return
		}
		respondJSON(w, &progress, http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Preferences handles GET and PUT of /api/v1/books/{id}/preferences
func (h *BookHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	bookID := extractIDFromPath(r.URL.Path, "/api/v1/books/")
	if bookID == "" {
		respondError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		prefs, err := h.repo.GetPreferences(r.Context(), bookID)
		if err != nil {
			prefs = types.DefaultPreferences(bookID)
		}
		respondJSON(w, prefs, http.StatusOK)

	case http.MethodPut, http.MethodPost:
		var prefs types.DisplayPreferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			respondError(w, "Invalid preferences payload", http.StatusBadRequest)
			return
		}
		prefs.BookID = bookID
		prefs.UpdatedAt = time.Now()

		if err := h.repo.SavePreferences(r.Context(), &prefs); err != nil {
			respondError(w, "Failed to save preferences", http.StatusInternalServerError)
			return
		}
		respondJSON(w, &prefs, http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// CacheStats handles GET /api/v1/cache/stats
func (h *BookHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.bufCache.Stats(), http.StatusOK)
}

func extractIDFromPath(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
