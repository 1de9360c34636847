package jobs

import (
	"github.com/gin-gonic/gin"

	"github.com/bookableu/core/internal/pkg/response"
	"github.com/bookableu/core/internal/pkg/taskqueue"
)

// Handler exposes background job records for polling.
type Handler struct{ queue *taskqueue.Service }

func NewHandler(queue *taskqueue.Service) *Handler { return &Handler{queue: queue} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	j := rg.Group("/jobs", authMW)
	j.GET("/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	job, err := h.queue.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if job == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, job)
}
