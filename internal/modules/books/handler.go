package books

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bookableu/core/internal/middleware"
	"github.com/bookableu/core/internal/pkg/pagination"
	"github.com/bookableu/core/internal/pkg/response"
	"github.com/bookableu/core/internal/pkg/taskqueue"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	b := rg.Group("/books", authMW)
	b.POST("/upload", h.upload)
	b.GET("", h.list)
	b.GET("/:id", h.get)
	b.PUT("/:id", h.update)
	b.DELETE("/:id", h.delete)
	b.GET("/:id/download", h.download)
	b.GET("/:id/query", h.query)
	b.GET("/:id/jobs", h.listJobs)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".pdf" && ext != ".epub" {
		response.UnprocessableEntity(c, fmt.Sprintf("unsupported file format %s", ext))
		return
	}

	maxBytes := int64(h.svc.cfg.Processing.MaxUploadMB) << 20
	if fileHeader.Size > maxBytes {
		response.UnprocessableEntity(c, fmt.Sprintf("file exceeds %d MB limit", h.svc.cfg.Processing.MaxUploadMB))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if int64(len(data)) > maxBytes {
		response.UnprocessableEntity(c, fmt.Sprintf("file exceeds %d MB limit", h.svc.cfg.Processing.MaxUploadMB))
		return
	}

	totalPages := 0
	if raw := c.PostForm("total_pages"); raw != "" {
		if totalPages, err = strconv.Atoi(raw); err != nil || totalPages < 0 {
			response.BadRequest(c, "total_pages must be a non-negative integer")
			return
		}
	}

	book, err := h.svc.Create(c.Request.Context(), userID,
		c.PostForm("title"), c.PostForm("author"), totalPages,
		fileHeader.Filename, data)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	// indexing continues after the response; progress is visible via the
	// jobs endpoint and the book status
	go h.svc.StartIndexing(context.WithoutCancel(c.Request.Context()), book, fileHeader.Filename, data)

	response.Created(c, toResponse(book, false))
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]bookResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i], false)
	}
	response.Paged(c, out, pag)
}

func (h *Handler) get(c *gin.Context) {
	book, err := h.svc.GetByID(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if book == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(book, true))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateBookDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	book, err := h.svc.Update(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if book == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(book, true))
}

func (h *Handler) delete(c *gin.Context) {
	found, err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !found {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}

func (h *Handler) download(c *gin.Context) {
	url, err := h.svc.DownloadURL(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if url == "" {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *Handler) query(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.BadRequest(c, "query is required")
		return
	}
	noSpoilers := c.DefaultQuery("no_spoilers", "true") != "false"

	result, err := h.svc.Query(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), query, noSpoilers)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotIndexed):
			response.Conflict(c, "book is still being processed")
		case errors.Is(err, ErrQueryFailed):
			response.InternalErrorMsg(c, "query failed")
		default:
			response.InternalError(c, err)
		}
		return
	}
	if result == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, result)
}

func (h *Handler) listJobs(c *gin.Context) {
	book, err := h.svc.GetByID(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if book == nil {
		response.NotFound(c)
		return
	}
	if h.svc.queue == nil {
		response.OK(c, []*taskqueue.Job{})
		return
	}
	jobs, err := h.svc.queue.ListByBook(c.Request.Context(), book.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, jobs)
}
