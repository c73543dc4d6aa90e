package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/InRunning/epub-online/internal/book"
	"github.com/InRunning/epub-online/internal/cache"
	"github.com/InRunning/epub-online/internal/library"
	"github.com/InRunning/epub-online/internal/storage"
	"github.com/InRunning/epub-online/pkg/types"
)

func newTestHandler(t *testing.T) *BookHandler {
	t.Helper()
	adapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	repo := book.NewRepository(adapter)
	bufCache := cache.New(cache.Options{})
	return NewBookHandler(repo, library.NewService(repo, bufCache), bufCache, 10)
}

func uploadTestBook(t *testing.T, handler *BookHandler, fileName string, data []byte) *types.Book {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(data)
	writer.WriteField("author", "Test Author")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	handler.Books(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var uploaded types.Book
	if err := json.NewDecoder(w.Body).Decode(&uploaded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return &uploaded
}

func TestUploadBook(t *testing.T) {
	handler := newTestHandler(t)
	data := []byte("PK\x03\x04 epub bytes")

	uploaded := uploadTestBook(t, handler, "my-book.epub", data)

	if uploaded.ID == "" {
		t.Error("Expected non-empty book ID")
	}
	if uploaded.Title != "my-book" {
		t.Errorf("Expected title derived from file name, got %q", uploaded.Title)
	}
	if uploaded.Size != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), uploaded.Size)
	}
}

func TestUploadRejectsNonEpub(t *testing.T) {
	handler := newTestHandler(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	part.Write([]byte("plain text"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	handler.Books(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListBooks(t *testing.T) {
	handler := newTestHandler(t)
	uploadTestBook(t, handler, "a.epub", []byte("a"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	w := httptest.NewRecorder()
	handler.Books(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var books []types.Book
	if err := json.NewDecoder(w.Body).Decode(&books); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(books) != 1 {
		t.Errorf("Expected 1 book, got %d", len(books))
	}
}

func TestGetBookFile(t *testing.T) {
	handler := newTestHandler(t)
	data := []byte("PK\x03\x04 epub bytes")
	uploaded := uploadTestBook(t, handler, "book.epub", data)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+uploaded.ID+"/file", nil)
	w := httptest.NewRecorder()
	handler.GetBookFile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/epub+zip" {
		t.Errorf("Expected epub content type, got %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Error("Served file does not match uploaded bytes")
	}
}

func TestProgressRoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	uploaded := uploadTestBook(t, handler, "book.epub", []byte("bytes"))
	path := "/api/v1/books/" + uploaded.ID + "/progress"

	// Before any save, progress is the start of the book
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.Progress(w, req)

	var progress types.ReadingProgress
	if err := json.NewDecoder(w.Body).Decode(&progress); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if progress.Percentage != 0 || progress.Location != "" {
		t.Errorf("Expected zero progress, got %+v", progress)
	}

	// Save progress
	payload := `{"location":"epubcfi(/6/4!/4/2:0)","percentage":33.3,"chapter":"Two"}`
	req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(payload))
	w = httptest.NewRecorder()
	handler.Progress(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// Read it back
	req = httptest.NewRequest(http.MethodGet, path, nil)
	w = httptest.NewRecorder()
	handler.Progress(w, req)

	if err := json.NewDecoder(w.Body).Decode(&progress); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if progress.Location != "epubcfi(/6/4!/4/2:0)" {
		t.Errorf("Location mismatch: got %q", progress.Location)
	}
	if progress.Percentage != 33.3 {
		t.Errorf("Percentage mismatch: got %f", progress.Percentage)
	}
}

func TestProgressRejectsBadPercentage(t *testing.T) {
	handler := newTestHandler(t)
	uploaded := uploadTestBook(t, handler, "book.epub", []byte("bytes"))

	payload := `{"location":"x","percentage":150}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/books/"+uploaded.ID+"/progress", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.Progress(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPreferencesDefaultAndSave(t *testing.T) {
	handler := newTestHandler(t)
	uploaded := uploadTestBook(t, handler, "book.epub", []byte("bytes"))
	path := "/api/v1/books/" + uploaded.ID + "/preferences"

	// Defaults before any save
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.Preferences(w, req)

	var prefs types.DisplayPreferences
	if err := json.NewDecoder(w.Body).Decode(&prefs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if prefs.Theme != "light" || prefs.Flow != "paginated" {
		t.Errorf("Expected default preferences, got %+v", prefs)
	}

	// Save dark theme
	payload := `{"theme":"dark","font_size":120,"line_spacing":1.8,"flow":"scrolled"}`
	req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(payload))
	w = httptest.NewRecorder()
	handler.Preferences(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, path, nil)
	w = httptest.NewRecorder()
	handler.Preferences(w, req)

	if err := json.NewDecoder(w.Body).Decode(&prefs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if prefs.Theme != "dark" || prefs.FontSize != 120 {
		t.Errorf("Preferences not saved: %+v", prefs)
	}
}

func TestPreloadEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	uploaded := uploadTestBook(t, handler, "book.epub", []byte("bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books/"+uploaded.ID+"/preload", nil)
	w := httptest.NewRecorder()
	handler.PreloadBook(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var res map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if res["status"] != string(cache.PreloadAlreadyCached) {
		t.Errorf("Expected already_cached, got %v", res["status"])
	}

	// Unknown book: still 200, outcome is failed
	req = httptest.NewRequest(http.MethodPost, "/api/v1/books/nope/preload", nil)
	w = httptest.NewRecorder()
	handler.PreloadBook(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if res["status"] != string(cache.PreloadFailed) {
		t.Errorf("Expected failed, got %v", res["status"])
	}
}

func TestDeleteBook(t *testing.T) {
	handler := newTestHandler(t)
	uploaded := uploadTestBook(t, handler, "book.epub", []byte("bytes"))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/books/"+uploaded.ID, nil)
	w := httptest.NewRecorder()
	handler.DeleteBook(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/books/"+uploaded.ID, nil)
	w = httptest.NewRecorder()
	handler.GetBook(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	uploadTestBook(t, handler, "book.epub", []byte("12345"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	w := httptest.NewRecorder()
	handler.CacheStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats cache.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Count != 1 {
		t.Errorf("Expected 1 cached entry, got %d", stats.Count)
	}
	if stats.TotalBytes != 5 {
		t.Errorf("Expected 5 total bytes, got %d", stats.TotalBytes)
	}
}
