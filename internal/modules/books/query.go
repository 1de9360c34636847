package books

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bookableu/core/internal/models"
	"github.com/bookableu/core/internal/pkg/llm"
)

const maxRetrievedChunks = 5

// instructionStyles shape the tone of the answer. Unknown style names fall
// back to academic.
var instructionStyles = map[string]string{
	"academic": "Answer in a scholarly tone. Cite the provided passages where relevant and be precise about what the text does and does not say.",
	"casual":   "Answer in a friendly, conversational tone, as if discussing the book with a fellow reader.",
	"concise":  "Answer in at most three sentences. No preamble.",
}

// Query answers a question about a book using its committed index. When
// noSpoilers is set, retrieved passages past the reader's current position
// are dropped after ranking.
func (s *Service) Query(ctx context.Context, userID, bookID, query string, noSpoilers bool) (*QueryResult, error) {
	book, err := s.GetByID(userID, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, nil
	}
	if !book.Metadata.Extracted || book.Metadata.NumChunks == 0 {
		return nil, ErrNotIndexed
	}
	return s.answer(ctx, book, s.loadLLMPreferences(userID), query, noSpoilers)
}

func (s *Service) answer(ctx context.Context, book *models.BookModel, prefs *models.LLMPreferences, query string, noSpoilers bool) (*QueryResult, error) {
	if !book.Metadata.Extracted || book.Metadata.NumChunks == 0 {
		return nil, ErrNotIndexed
	}

	chunks, err := s.retrieve(ctx, book, query, noSpoilers)
	if err != nil {
		s.log.Error("retrieval failed",
			zap.String("book_id", book.ID), zap.Error(err))
		return nil, ErrQueryFailed
	}

	resp, err := s.completer.Complete(ctx, s.buildRequest(book, prefs, chunks, query))
	if err != nil {
		s.log.Error("completion failed",
			zap.String("book_id", book.ID), zap.Error(err))
		return nil, ErrQueryFailed
	}

	return &QueryResult{Response: resp, Chunks: chunks}, nil
}

func (s *Service) retrieve(ctx context.Context, book *models.BookModel, query string, noSpoilers bool) ([]RetrievedChunk, error) {
	// the keys recorded at commit time are authoritative
	vecData, err := s.store.Get(ctx, book.Metadata.VectorizerKey)
	if err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	idxData, err := s.store.Get(ctx, book.Metadata.IndexKey)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	chunkData, err := s.store.Get(ctx, book.Metadata.ChunksKey)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	vectorizer, err := decodeVectorizer(vecData)
	if err != nil {
		return nil, err
	}
	index, err := decodeIndex(idxData)
	if err != nil {
		return nil, err
	}
	texts, err := decodeChunks(chunkData)
	if err != nil {
		return nil, err
	}

	k := maxRetrievedChunks
	if book.Metadata.NumChunks < k {
		k = book.Metadata.NumChunks
	}
	hits, err := index.Search(vectorizer.Transform(query), k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	boundary := spoilerBoundary(book, noSpoilers)

	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if boundary >= 0 && hit.Index > boundary {
			continue
		}
		if hit.Index >= len(texts) {
			continue
		}
		chunks = append(chunks, RetrievedChunk{
			Text:            texts[hit.Index],
			SimilarityScore: 1 / (1 + hit.Distance),
			ChunkIndex:      hit.Index,
		})
	}
	return chunks, nil
}

// spoilerBoundary returns the last chunk index the reader has reached, or -1
// when filtering is off. Filtering requires both a positive current page and
// a positive page total; a reader who has not started gets everything. The
// denominator is the total chunk count recorded at commit time, not the size
// of any retrieved set.
func spoilerBoundary(book *models.BookModel, noSpoilers bool) int {
	if !noSpoilers || book.CurrentPage <= 0 || book.TotalPages <= 0 {
		return -1
	}
	return int(float64(book.CurrentPage) / float64(book.TotalPages) * float64(book.Metadata.NumChunks))
}

func (s *Service) loadLLMPreferences(userID string) *models.LLMPreferences {
	var u models.UserModel
	if err := s.db.Select("preferences").Where("id = ?", userID).First(&u).Error; err != nil {
		return nil
	}
	return u.Preferences.LLM
}

func (s *Service) buildRequest(book *models.BookModel, prefs *models.LLMPreferences, chunks []RetrievedChunk, query string) llm.Request {
	style := s.cfg.Query.InstructionStyle
	if prefs != nil && prefs.InstructionStyle != "" {
		style = prefs.InstructionStyle
	}
	instruction, ok := instructionStyles[strings.ToLower(style)]
	if !ok {
		instruction = instructionStyles["academic"]
	}

	var system strings.Builder
	system.WriteString("You are a reading companion answering questions about a book using only the supplied passages. ")
	system.WriteString(instruction)

	var prompt strings.Builder
	prompt.WriteString("Book: " + book.Title)
	if book.Author != "" {
		prompt.WriteString(" by " + book.Author)
	}
	prompt.WriteString("\n")
	if book.TotalPages > 0 {
		fmt.Fprintf(&prompt, "The reader is on page %d of %d.\n", book.CurrentPage, book.TotalPages)
	}
	prompt.WriteString("\nPassages:\n\n")
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	prompt.WriteString(strings.Join(texts, "\n\n---\n\n"))
	prompt.WriteString("\n\nQuestion: " + query)

	req := llm.Request{
		System: system.String(),
		Prompt: prompt.String(),
	}
	if prefs != nil {
		req.Model = prefs.Model
		if prefs.Temperature != nil {
			req.Temperature = *prefs.Temperature
		}
		if prefs.MaxTokens != nil {
			req.MaxTokens = *prefs.MaxTokens
		}
	}
	return req
}
