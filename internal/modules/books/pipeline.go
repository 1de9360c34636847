package books

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bookableu/core/internal/models"
	"github.com/bookableu/core/internal/pkg/taskqueue"
	"github.com/bookableu/core/internal/pkg/textindex"
)

// pipelineState tracks a single indexing run. Transitions are linear with
// failed reachable from any non-terminal state; anything else is a bug.
type pipelineState string

const (
	stateUploaded   pipelineState = "uploaded"
	stateExtracting pipelineState = "extracting"
	stateChunking   pipelineState = "chunking"
	stateIndexing   pipelineState = "indexing"
	statePersisting pipelineState = "persisting"
	stateCommitted  pipelineState = "committed"
	stateFailed     pipelineState = "failed"
)

var pipelineNext = map[pipelineState]pipelineState{
	stateUploaded:   stateExtracting,
	stateExtracting: stateChunking,
	stateChunking:   stateIndexing,
	stateIndexing:   statePersisting,
	statePersisting: stateCommitted,
}

type pipelineRun struct {
	state pipelineState
}

func (p *pipelineRun) advance(to pipelineState) error {
	if p.state == stateCommitted || p.state == stateFailed {
		return fmt.Errorf("pipeline already terminal in state %s", p.state)
	}
	if to == stateFailed {
		p.state = stateFailed
		return nil
	}
	if pipelineNext[p.state] != to {
		return fmt.Errorf("invalid pipeline transition %s -> %s", p.state, to)
	}
	p.state = to
	return nil
}

const indexJobType = "index_book"

// StartIndexing runs the indexing pipeline for a freshly uploaded book.
// Intended to be called in its own goroutine after the upload response;
// concurrency across uploads is bounded by the service worker semaphore.
// On failure the book row is left untouched and the job is marked failed.
func (s *Service) StartIndexing(ctx context.Context, book *models.BookModel, filename string, data []byte) {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		s.log.Error("indexing worker acquire failed", zap.String("book_id", book.ID), zap.Error(err))
		return
	}
	defer s.workers.Release(1)

	var job *taskqueue.Job
	if s.queue != nil {
		var err error
		job, err = s.queue.Enqueue(ctx, indexJobType, map[string]string{"filename": filename}, indexJobType+":"+book.ID, book.ID)
		if err != nil {
			s.log.Warn("failed to enqueue index job", zap.String("book_id", book.ID), zap.Error(err))
		}
	}
	s.setJobStatus(ctx, job, taskqueue.JobRunning, nil, "")

	result, err := s.runPipeline(ctx, book, filename, data)
	if err != nil {
		s.log.Error("indexing pipeline failed",
			zap.String("book_id", book.ID),
			zap.String("file_key", book.FileKey),
			zap.Error(err))
		s.setJobStatus(ctx, job, taskqueue.JobFailed, nil, err.Error())
		return
	}

	s.log.Info("book indexed",
		zap.String("book_id", book.ID),
		zap.Int("num_chunks", result.NumChunks),
		zap.Int("page_count", result.PageCount))
	s.setJobStatus(ctx, job, taskqueue.JobCompleted, result, "")
}

// IndexResult summarizes a committed pipeline run.
type IndexResult struct {
	NumChunks int `json:"num_chunks"`
	PageCount int `json:"page_count"`
}

func (s *Service) runPipeline(ctx context.Context, book *models.BookModel, filename string, data []byte) (*IndexResult, error) {
	run := &pipelineRun{state: stateUploaded}
	fail := func(err error) (*IndexResult, error) {
		_ = run.advance(stateFailed)
		return nil, err
	}

	keys := deriveArtifactKeys(book.FileKey)

	if err := run.advance(stateExtracting); err != nil {
		return nil, err
	}
	extracted, err := s.extractor.Extract(ctx, filename, data)
	if err != nil {
		return fail(err)
	}
	if err := s.store.Put(ctx, keys.Text, []byte(extracted.Text), "text/plain; charset=utf-8"); err != nil {
		return fail(fmt.Errorf("store extracted text: %w", err))
	}

	if err := run.advance(stateChunking); err != nil {
		return nil, err
	}
	chunks := textindex.SplitWords(extracted.Text, s.cfg.Processing.ChunkWords)
	if len(chunks) == 0 {
		return fail(textindex.ErrEmptyDocument)
	}

	if err := run.advance(stateIndexing); err != nil {
		return nil, err
	}
	vectorizer, index, err := textindex.FitIndex(chunks, s.cfg.Processing.MaxVocabulary)
	if err != nil {
		return fail(err)
	}

	if err := run.advance(statePersisting); err != nil {
		return nil, err
	}
	if err := s.persistArtifacts(ctx, keys, vectorizer, index, chunks); err != nil {
		return fail(err)
	}

	if err := run.advance(stateCommitted); err != nil {
		return nil, err
	}
	if err := s.commitFn(book, keys, len(chunks), extracted.PageCount); err != nil {
		return nil, fmt.Errorf("commit book metadata: %w", err)
	}

	return &IndexResult{NumChunks: len(chunks), PageCount: extracted.PageCount}, nil
}

func (s *Service) persistArtifacts(ctx context.Context, keys artifactKeys, vectorizer *textindex.Vectorizer, index *textindex.FlatIndex, chunks []string) error {
	vecData, err := encodeVectorizer(vectorizer)
	if err != nil {
		return err
	}
	idxData, err := encodeIndex(index)
	if err != nil {
		return err
	}
	chunkData, err := encodeChunks(chunks)
	if err != nil {
		return err
	}

	puts := []struct {
		key  string
		data []byte
	}{
		{keys.Vectorizer, vecData},
		{keys.Index, idxData},
		{keys.Chunks, chunkData},
	}
	for _, p := range puts {
		if err := s.store.Put(ctx, p.key, p.data, "application/octet-stream"); err != nil {
			return fmt.Errorf("store %s: %w", p.key, err)
		}
	}
	return nil
}

// commitUpdates builds the single update map flipping a book to indexed: all
// derived keys, metadata and status land together so a book is either fully
// indexed or not indexed at all. The detected page count is applied only when
// the upload carried none.
func commitUpdates(book *models.BookModel, keys artifactKeys, numChunks, detectedPages int) map[string]any {
	updates := map[string]any{
		"text_key": keys.Text,
		"status":   models.BookUnread,
		"metadata": models.ProcessingMetadata{
			Extracted:     true,
			IndexKey:      keys.Index,
			VectorizerKey: keys.Vectorizer,
			ChunksKey:     keys.Chunks,
			NumChunks:     numChunks,
		},
	}
	if book.TotalPages == 0 && detectedPages > 0 {
		updates["total_pages"] = detectedPages
	}
	return updates
}

func (s *Service) commit(book *models.BookModel, keys artifactKeys, numChunks, detectedPages int) error {
	return s.db.Model(&models.BookModel{}).Where("id = ?", book.ID).
		Updates(commitUpdates(book, keys, numChunks, detectedPages)).Error
}

func (s *Service) setJobStatus(ctx context.Context, job *taskqueue.Job, status taskqueue.JobStatus, result interface{}, errMsg string) {
	if s.queue == nil || job == nil {
		return
	}
	if err := s.queue.UpdateStatus(ctx, job.ID, status, result, errMsg); err != nil {
		s.log.Warn("failed to update index job status", zap.String("job_id", job.ID), zap.Error(err))
	}
}
