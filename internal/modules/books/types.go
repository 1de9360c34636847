package books

import (
	"errors"
	"time"

	"github.com/bookableu/core/internal/models"
)

var (
	// ErrNotIndexed means the book has no committed index artifacts yet,
	// either because the pipeline is still running or because it failed.
	ErrNotIndexed = errors.New("book is not indexed")

	// ErrQueryFailed covers retrieval and completion failures during a
	// question. The cause is logged server-side, never sent to the client.
	ErrQueryFailed = errors.New("query failed")

	// ErrSerialization wraps artifact encode/decode failures.
	ErrSerialization = errors.New("artifact serialization failed")
)

type UpdateBookDTO struct {
	Title       *string            `json:"title"`
	Author      *string            `json:"author"`
	CurrentPage *int               `json:"current_page"`
	TotalPages  *int               `json:"total_pages"`
	Status      *models.BookStatus `json:"status"`
}

type bookResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Author          string            `json:"author,omitempty"`
	Status          models.BookStatus `json:"status"`
	TotalPages      int               `json:"total_pages"`
	CurrentPage     int               `json:"current_page"`
	ReadingProgress *float64          `json:"reading_progress,omitempty"`
	Indexed         bool              `json:"indexed"`
	Created         time.Time         `json:"created"`
	Modified        time.Time         `json:"modified"`
}

func toResponse(b *models.BookModel, withProgress bool) bookResponse {
	r := bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Status:      b.Status,
		TotalPages:  b.TotalPages,
		CurrentPage: b.CurrentPage,
		Indexed:     b.Metadata.Extracted,
		Created:     b.CreatedAt,
		Modified:    b.UpdatedAt,
	}
	if withProgress && b.TotalPages > 0 {
		progress := float64(b.CurrentPage) / float64(b.TotalPages) * 100
		r.ReadingProgress = &progress
	}
	return r
}

// RetrievedChunk is one passage that survived retrieval and spoiler
// filtering, in similarity rank order.
type RetrievedChunk struct {
	Text            string  `json:"text"`
	SimilarityScore float32 `json:"similarity_score"`
	ChunkIndex      int     `json:"chunk_index"`
}

type QueryResult struct {
	Response string           `json:"response"`
	Chunks   []RetrievedChunk `json:"chunks"`
}
