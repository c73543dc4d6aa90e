package util

import (
	"fmt"
	"path/filepath"
)

// BookDir returns the storage directory for a book's documents
func BookDir(bookID string) string {
	return filepath.Join("books", bookID)
}

// MetadataPath returns the storage path for a book's metadata document
func MetadataPath(bookID string) string {
	return filepath.Join("books", bookID, "metadata.json")
}

// RawFilePath returns the storage path for a book's uploaded file
func RawFilePath(bookID, format string) string {
	return filepath.Join("books", bookID, fmt.Sprintf("raw.%s", format))
}

// ProgressPath returns the storage path for a book's reading progress
func ProgressPath(bookID string) string {
	return filepath.Join("books", bookID, "progress.json")
}

// PreferencesPath returns the storage path for a book's display preferences
func PreferencesPath(bookID string) string {
	return filepath.Join("books", bookID, "preferences.json")
}
