package books

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/bookableu/core/internal/config"
	"github.com/bookableu/core/internal/models"
	"github.com/bookableu/core/internal/pkg/extract"
	"github.com/bookableu/core/internal/pkg/llm"
	"github.com/bookableu/core/internal/pkg/objstore"
	"github.com/bookableu/core/internal/pkg/pagination"
	"github.com/bookableu/core/internal/pkg/response"
	"github.com/bookableu/core/internal/pkg/taskqueue"
)

const downloadURLTTL = time.Hour

type Service struct {
	db        *gorm.DB
	store     objstore.Store
	extractor *extract.Service
	queue     *taskqueue.Service
	completer llm.Completer
	cfg       *config.AppConfig
	log       *zap.Logger

	workers *semaphore.Weighted

	// commitFn applies the final metadata update of a pipeline run. It is a
	// field so tests can observe commits without a live database.
	commitFn func(book *models.BookModel, keys artifactKeys, numChunks, detectedPages int) error
}

func NewService(db *gorm.DB, store objstore.Store, extractor *extract.Service, queue *taskqueue.Service, completer llm.Completer, cfg *config.AppConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	workers := int64(cfg.Processing.Workers)
	if workers <= 0 {
		workers = 4
	}
	s := &Service{
		db:        db,
		store:     store,
		extractor: extractor,
		queue:     queue,
		completer: completer,
		cfg:       cfg,
		log:       log,
		workers:   semaphore.NewWeighted(workers),
	}
	s.commitFn = s.commit
	return s
}

// Create stores the raw upload and records a PROCESSING book. Indexing runs
// separately; see StartIndexing.
func (s *Service) Create(ctx context.Context, userID, title, author string, totalPages int, filename string, data []byte) (*models.BookModel, error) {
	rawKey, err := s.uniqueFileKey(userID, filename)
	if err != nil {
		return nil, err
	}

	contentType := mime.TypeByExtension(path.Ext(rawKey))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Put(ctx, rawKey, data, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	}

	book := models.BookModel{
		UserID:     userID,
		Title:      title,
		Author:     author,
		FileKey:    rawKey,
		TotalPages: totalPages,
		Status:     models.BookProcessing,
	}
	if err := s.db.Create(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// uniqueFileKey resolves collisions against existing book rows by appending
// a counter to the base name.
func (s *Service) uniqueFileKey(userID, filename string) (string, error) {
	key := rawFileKey(userID, filename)
	for n := 0; ; n++ {
		candidate := key
		if n > 0 {
			candidate = withCollisionCounter(key, n)
		}
		var count int64
		if err := s.db.Model(&models.BookModel{}).Where("file_key = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
}

func (s *Service) List(userID string, q pagination.Query) ([]models.BookModel, response.Pagination, error) {
	tx := s.db.Model(&models.BookModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	var items []models.BookModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(userID, id string) (*models.BookModel, error) {
	var b models.BookModel
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// Update applies reading-state changes. The owner's books_finished counter
// is bumped on the first transition into FINISHED only.
func (s *Service) Update(userID, id string, dto *UpdateBookDTO) (*models.BookModel, error) {
	b, err := s.GetByID(userID, id)
	if err != nil || b == nil {
		return b, err
	}

	updates := map[string]any{}
	if dto.Title != nil && strings.TrimSpace(*dto.Title) != "" {
		updates["title"] = *dto.Title
	}
	if dto.Author != nil {
		updates["author"] = *dto.Author
	}
	if dto.TotalPages != nil && *dto.TotalPages >= 0 {
		updates["total_pages"] = *dto.TotalPages
	}
	if dto.CurrentPage != nil && *dto.CurrentPage >= 0 {
		updates["current_page"] = *dto.CurrentPage
	}

	finishedNow := false
	if dto.Status != nil {
		if !dto.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q", *dto.Status)
		}
		updates["status"] = *dto.Status
		finishedNow = *dto.Status == models.BookFinished && b.Status != models.BookFinished
	}

	if len(updates) == 0 {
		return b, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(b).Updates(updates).Error; err != nil {
			return err
		}
		if finishedNow {
			return tx.Model(&models.UserModel{}).
				Where("id = ?", userID).
				UpdateColumn("books_finished", gorm.Expr("books_finished + 1")).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(userID, id)
}

// Delete removes the row and every stored object belonging to the book.
// Object deletions are best effort; a missing key is not an error.
func (s *Service) Delete(ctx context.Context, userID, id string) (bool, error) {
	b, err := s.GetByID(userID, id)
	if err != nil || b == nil {
		return false, err
	}

	if err := s.db.Delete(b).Error; err != nil {
		return false, err
	}

	for _, key := range deriveArtifactKeys(b.FileKey).allKeys() {
		if err := s.store.Delete(ctx, key); err != nil && !objstore.IsNotFound(err) {
			s.log.Warn("failed to delete book object",
				zap.String("book_id", id), zap.String("key", key), zap.Error(err))
		}
	}
	return true, nil
}

// DownloadURL returns a presigned URL for the raw file, valid for one hour.
func (s *Service) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	b, err := s.GetByID(userID, id)
	if err != nil {
		return "", err
	}
	if b == nil {
		return "", nil
	}
	return s.store.SignURL(ctx, b.FileKey, downloadURLTTL)
}
