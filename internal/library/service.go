package library

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/InRunning/epub-online/internal/book"
	"github.com/InRunning/epub-online/internal/cache"
	"github.com/InRunning/epub-online/pkg/types"
)

// Service ties the book repository and the buffer cache together:
// uploads seed the cache, opens consult it before touching storage,
// and preloads warm it ahead of an anticipated open.
type Service struct {
	repo  book.Repository
	cache *cache.Cache

	// now is replaceable in tests
	now func() time.Time
}

// NewService creates a new library service
func NewService(repo book.Repository, bufCache *cache.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: bufCache,
		now:   time.Now,
	}
}

// DeriveKey builds the cache key for a book: file name plus upload
// timestamp in milliseconds. Two books with the same file name
// uploaded in the same millisecond would collide, and re-uploading
// the same file later yields a fresh key (a cache miss); both are
// accepted consequences of this scheme.
func DeriveKey(fileName string, uploadedAt time.Time) string {
	return fmt.Sprintf("%s-%d", fileName, uploadedAt.UnixMilli())
}

// AddBook stores a newly uploaded book and seeds the cache with its
// bytes, so the first open after upload skips the storage read.
func (s *Service) AddBook(ctx context.Context, fileName, title, author string, data []byte) (*types.Book, error) {
	uploadedAt := s.now()
	newBook := &types.Book{
		ID:         DeriveKey(fileName, uploadedAt),
		Title:      title,
		Author:     author,
		FileName:   fileName,
		Format:     "epub",
		Size:       int64(len(data)),
		UploadedAt: uploadedAt,
	}

	if err := s.repo.SaveBook(ctx, newBook); err != nil {
		return nil, fmt.Errorf("failed to save book metadata: %w", err)
	}
	if err := s.repo.SaveBookFile(ctx, newBook.ID, newBook.Format, data); err != nil {
		return nil, fmt.Errorf("failed to save book file: %w", err)
	}

	s.cache.Put(newBook.ID, data)
	return newBook, nil
}

// OpenBook returns a book's metadata and its raw bytes, consulting
// the cache before falling back to storage. A cache miss populates
// the cache for the next open.
func (s *Service) OpenBook(ctx context.Context, bookID string) (*types.Book, []byte, error) {
	meta, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}

	if data, ok := s.cache.Get(bookID); ok {
		return meta, data, nil
	}

	data, err := s.repo.GetBookFile(ctx, bookID, meta.Format)
	if err != nil {
		return nil, nil, err
	}
	s.cache.Put(bookID, data)

	return meta, data, nil
}

// PreloadBook warms the cache for a book without blocking on
// failure; the returned result says what happened.
func (s *Service) PreloadBook(ctx context.Context, bookID string) cache.PreloadResult {
	return s.cache.Preload(ctx, bookID, func(ctx context.Context) ([]byte, error) {
		meta, err := s.repo.GetBook(ctx, bookID)
		if err != nil {
			return nil, err
		}
		return s.repo.GetBookFile(ctx, bookID, meta.Format)
	})
}

// WarmRecent preloads up to limit of the most recently uploaded
// books concurrently. Individual preload failures are already
// absorbed by the cache; only the listing itself can fail.
func (s *Service) WarmRecent(ctx context.Context, limit int) error {
	if limit <= 0 {
		return nil
	}

	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books for warm-up: %w", err)
	}
	if len(books) > limit {
		books = books[:limit]
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range books {
		bookID := b.ID
		g.Go(func() error {
			res := s.PreloadBook(ctx, bookID)
			log.Printf("Warm-up preload %s: %s", bookID, res.Status)
			return nil
		})
	}
	return g.Wait()
}

// DeleteBook removes a book from storage and drops its cache entry
func (s *Service) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.repo.DeleteBook(ctx, bookID); err != nil {
		return err
	}
	s.cache.Remove(bookID)
	return nil
}
