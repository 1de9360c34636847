package models

// BookStatus is the reading lifecycle state of a book.
type BookStatus string

const (
	BookProcessing BookStatus = "processing"
	BookUnread     BookStatus = "unread"
	BookReading    BookStatus = "reading"
	BookFinished   BookStatus = "finished"
)

// Valid reports whether s is a known status value.
func (s BookStatus) Valid() bool {
	switch s {
	case BookProcessing, BookUnread, BookReading, BookFinished:
		return true
	}
	return false
}

// ProcessingMetadata is written exactly once by the indexing pipeline when a
// book has been fully indexed. Extracted is false until that commit.
type ProcessingMetadata struct {
	Extracted     bool   `json:"extracted"`
	IndexKey      string `json:"index_key,omitempty"`
	VectorizerKey string `json:"vectorizer_key,omitempty"`
	ChunksKey     string `json:"chunks_key,omitempty"`
	NumChunks     int    `json:"num_chunks,omitempty"`
}

// BookModel represents an uploaded book and its derived artifacts.
type BookModel struct {
	Base
	UserID      string             `json:"user_id"      gorm:"type:char(36);index;not null"`
	Title       string             `json:"title"        gorm:"not null"`
	Author      string             `json:"author"`
	FileKey     string             `json:"file_key"     gorm:"not null"`
	TextKey     string             `json:"text_key"`
	TotalPages  int                `json:"total_pages"`
	CurrentPage int                `json:"current_page" gorm:"not null;default:0"`
	Status      BookStatus         `json:"status"       gorm:"type:varchar(16);not null;default:'unread'"`
	Metadata    ProcessingMetadata `json:"metadata"     gorm:"type:longtext;serializer:json"`
}

func (BookModel) TableName() string { return "books" }
