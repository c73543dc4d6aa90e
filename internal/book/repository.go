package book

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/InRunning/epub-online/internal/storage"
	"github.com/InRunning/epub-online/internal/util"
	"github.com/InRunning/epub-online/pkg/types"
)

// Repository handles book persistence: metadata, the uploaded file,
// and per-book reading state
type Repository interface {
	// SaveBook stores book metadata
	SaveBook(ctx context.Context, book *types.Book) error

	// GetBook retrieves book metadata by ID
	GetBook(ctx context.Context, bookID string) (*types.Book, error)

	// ListBooks returns all books, most recently uploaded first
	ListBooks(ctx context.Context) ([]*types.Book, error)

	// DeleteBook removes a book and everything stored under it
	DeleteBook(ctx context.Context, bookID string) error

	// SaveBookFile stores the uploaded raw file
	SaveBookFile(ctx context.Context, bookID, format string, data []byte) error

	// GetBookFile retrieves the uploaded raw file
	GetBookFile(ctx context.Context, bookID, format string) ([]byte, error)

	// SaveProgress stores reading progress for a book
	SaveProgress(ctx context.Context, progress *types.ReadingProgress) error

	// GetProgress retrieves reading progress for a book
	GetProgress(ctx context.Context, bookID string) (*types.ReadingProgress, error)

	// SavePreferences stores display preferences for a book
	SavePreferences(ctx context.Context, prefs *types.DisplayPreferences) error

	// GetPreferences retrieves display preferences for a book
	GetPreferences(ctx context.Context, bookID string) (*types.DisplayPreferences, error)
}

// StorageRepository implements Repository using a storage adapter
type StorageRepository struct {
	storage storage.Adapter
}

// NewRepository creates a new book repository
func NewRepository(storageAdapter storage.Adapter) Repository {
	return &StorageRepository{
		storage: storageAdapter,
	}
}

// SaveBook stores book metadata
func (r *StorageRepository) SaveBook(ctx context.Context, book *types.Book) error {
	return r.putJSON(ctx, util.MetadataPath(book.ID), book, "book")
}

// GetBook retrieves book metadata by ID
func (r *StorageRepository) GetBook(ctx context.Context, bookID string) (*types.Book, error) {
	var book types.Book
	if err := r.getJSON(ctx, util.MetadataPath(bookID), &book, "book"); err != nil {
		return nil, err
	}
	return &book, nil
}

// ListBooks returns all books, most recently uploaded first
func (r *StorageRepository) ListBooks(ctx context.Context) ([]*types.Book, error) {
	paths, err := r.storage.List(ctx, "books/")
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	books := make([]*types.Book, 0)
	for _, path := range paths {
		if filepath.Base(path) != "metadata.json" {
			continue
		}

		var book types.Book
		if err := r.getJSON(ctx, path, &book, "book"); err != nil {
			continue // Skip books that can't be read
		}
		books = append(books, &book)
	}

	sort.Slice(books, func(i, j int) bool {
		return books[i].UploadedAt.After(books[j].UploadedAt)
	})

	return books, nil
}

// DeleteBook removes a book and everything stored under it
func (r *StorageRepository) DeleteBook(ctx context.Context, bookID string) error {
	paths, err := r.storage.List(ctx, util.BookDir(bookID)+"/")
	if err != nil {
		return fmt.Errorf("failed to list book files: %w", err)
	}

	for _, path := range paths {
		if err := r.storage.Delete(ctx, path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}

	return nil
}

// SaveBookFile stores the uploaded raw file
func (r *StorageRepository) SaveBookFile(ctx context.Context, bookID, format string, data []byte) error {
	return r.storage.Put(ctx, util.RawFilePath(bookID, format), bytes.NewReader(data))
}

// GetBookFile retrieves the uploaded raw file
func (r *StorageRepository) GetBookFile(ctx context.Context, bookID, format string) ([]byte, error) {
	data, err := storage.ReadAll(ctx, r.storage, util.RawFilePath(bookID, format))
	if err != nil {
		return nil, fmt.Errorf("failed to get book file: %w", err)
	}
	return data, nil
}

// SaveProgress stores reading progress for a book
func (r *StorageRepository) SaveProgress(ctx context.Context, progress *types.ReadingProgress) error {
	return r.putJSON(ctx, util.ProgressPath(progress.BookID), progress, "progress")
}

// GetProgress retrieves reading progress for a book
func (r *StorageRepository) GetProgress(ctx context.Context, bookID string) (*types.ReadingProgress, error) {
	var progress types.ReadingProgress
	if err := r.getJSON(ctx, util.ProgressPath(bookID), &progress, "progress"); err != nil {
		return nil, err
	}
	return &progress, nil
}

// SavePreferences stores display preferences for a book
func (r *StorageRepository) SavePreferences(ctx context.Context, prefs *types.DisplayPreferences) error {
	return r.putJSON(ctx, util.PreferencesPath(prefs.BookID), prefs, "preferences")
}

// GetPreferences retrieves display preferences for a book
func (r *StorageRepository) GetPreferences(ctx context.Context, bookID string) (*types.DisplayPreferences, error) {
	var prefs types.DisplayPreferences
	if err := r.getJSON(ctx, util.PreferencesPath(bookID), &prefs, "preferences"); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *StorageRepository) putJSON(ctx context.Context, path string, v interface{}, what string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", what, err)
	}
	return r.storage.Put(ctx, path, bytes.NewReader(data))
}

func (r *StorageRepository) getJSON(ctx context.Context, path string, v interface{}, what string) error {
	reader, err := r.storage.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return nil
}
