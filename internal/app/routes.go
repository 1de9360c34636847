package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookableu/core/internal/middleware"
	"github.com/bookableu/core/internal/modules/auth"
	"github.com/bookableu/core/internal/modules/books"
	"github.com/bookableu/core/internal/modules/jobs"
	"github.com/bookableu/core/internal/modules/users"
	"github.com/bookableu/core/internal/pkg/extract"
	"github.com/bookableu/core/internal/pkg/llm"
	"github.com/bookableu/core/internal/pkg/objstore"
	pkgredis "github.com/bookableu/core/internal/pkg/redis"
	"github.com/bookableu/core/internal/pkg/response"
	"github.com/bookableu/core/internal/pkg/taskqueue"
)

func (a *App) registerRoutes(rc *pkgredis.Client) error {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	store, err := objstore.NewS3Store(a.cfg.S3)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}

	extractCache := extract.NewRedisCache(rc, time.Duration(a.cfg.Processing.CacheTTLSecs)*time.Second)
	extractor := extract.NewService(extractCache, time.Duration(a.cfg.Processing.ExtractionTimeoutSecs)*time.Second, a.logger)

	queue := taskqueue.NewService(rc)
	completer := llm.NewService(a.cfg.LLM)

	api := r.Group("/api/v1")

	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW)
	users.NewHandler(users.NewService(db)).RegisterRoutes(api, authMW)

	bookSvc := books.NewService(db, store, extractor, queue, completer, a.cfg, a.logger)
	books.NewHandler(bookSvc).RegisterRoutes(api, authMW)

	jobs.NewHandler(queue).RegisterRoutes(api, authMW)

	return nil
}
