package types

import "time"

// Book represents an uploaded book in the library
type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	FileName   string    `json:"file_name"`
	Format     string    `json:"format"` // currently always "epub"
	Size       int64     `json:"size"`   // raw file size in bytes
	UploadedAt time.Time `json:"uploaded_at"`
}

// ReadingProgress records where the reader last was in a book.
// Location is an opaque locator string produced by the rendering
// client (e.g. an EPUB CFI); the server never interprets it.
type ReadingProgress struct {
	BookID     string    `json:"book_id"`
	Location   string    `json:"location"`
	Percentage float64   `json:"percentage"` // 0-100
	Chapter    string    `json:"chapter,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayPreferences holds per-book theme and typography settings
type DisplayPreferences struct {
	BookID      string    `json:"book_id"`
	Theme       string    `json:"theme"`        // "light", "dark", "sepia"
	FontFamily  string    `json:"font_family"`  // empty => publisher default
	FontSize    int       `json:"font_size"`    // percent of base size
	LineSpacing float64   `json:"line_spacing"` // multiplier
	Flow        string    `json:"flow"`         // "paginated" or "scrolled"
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultPreferences returns the preferences applied to a book
// the first time it is opened
func DefaultPreferences(bookID string) *DisplayPreferences {
	return &DisplayPreferences{
		BookID:      bookID,
		Theme:       "light",
		FontSize:    100,
		LineSpacing: 1.5,
		Flow:        "paginated",
	}
}
