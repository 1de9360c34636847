package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// pdfExtractor reads page text with ledongthuc/pdf. Documents above
// parallelThreshold pages fan out across workers; each page writes into its
// own slot of an index-addressed slice so the joined text keeps page order.
type pdfExtractor struct {
	parallelThreshold int
	workers           int
}

func (e *pdfExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: open pdf: %v", ErrExtractionFailed, err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return Result{}, fmt.Errorf("%w: pdf has no pages", ErrExtractionFailed)
	}

	pages := make([]string, numPages)
	if numPages > e.parallelThreshold {
		err = e.extractParallel(ctx, reader, pages)
	} else {
		err = e.extractSequential(ctx, reader, pages)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{Text: strings.Join(pages, "\n"), PageCount: numPages}, nil
}

func (e *pdfExtractor) extractSequential(ctx context.Context, reader *pdf.Reader, pages []string) error {
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		text, err := extractPage(reader, i+1)
		if err != nil {
			return err
		}
		pages[i] = text
	}
	return nil
}

func (e *pdfExtractor) extractParallel(ctx context.Context, reader *pdf.Reader, pages []string) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)

	for i := range pages {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			text, err := extractPage(reader, i+1)
			if err != nil {
				return err
			}
			pages[i] = text
			return nil
		})
	}
	return group.Wait()
}

// extractPage pulls plain text from a single 1-based page. The pdf library
// panics on some malformed content streams, so the panic is converted to a
// page-level error here.
func extractPage(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, pageNum, r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, pageNum, err)
	}
	return text, nil
}
