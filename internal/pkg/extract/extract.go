// Package extract turns uploaded book files into plain text. PDF and EPUB
// are supported; everything else is rejected up front so the pipeline can
// fail the upload before any storage work happens.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat rejects files whose extension is neither .pdf
	// nor .epub.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed wraps any parser failure, including timeouts,
	// so callers can treat extraction problems uniformly.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Result is the extractor output. PageCount is only meaningful for PDFs;
// EPUB has no page notion and reports zero.
type Result struct {
	Text      string
	PageCount int
}

// Cache stores extraction results keyed by content fingerprint. A nil cache
// disables caching; cache failures are logged and never fail an extraction.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result) error
}

// Extractor converts a single file format to plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

// Service dispatches on file extension and fronts the extractors with an
// optional result cache and a per-document timeout.
type Service struct {
	cache   Cache
	timeout time.Duration
	log     *zap.Logger

	pdf  Extractor
	epub Extractor
}

func NewService(cache Cache, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cache:   cache,
		timeout: timeout,
		log:     log,
		pdf:     &pdfExtractor{parallelThreshold: 10, workers: 4},
		epub:    &epubExtractor{},
	}
}

// Extract converts data to plain text based on filename's extension.
func (s *Service) Extract(ctx context.Context, filename string, data []byte) (Result, error) {
	var extractor Extractor
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		extractor = s.pdf
	case ".epub":
		extractor = s.epub
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	key := Fingerprint(filename, data)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn("extraction cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := extractor.Extract(ctx, data)
	if err != nil {
		if errors.Is(err, ErrExtractionFailed) || errors.Is(err, ErrUnsupportedFormat) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.log.Warn("extraction cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// Fingerprint derives the cache key for a file: sha256 over the filename and
// the raw content, so renamed copies do not collide with each other.
func Fingerprint(filename string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
