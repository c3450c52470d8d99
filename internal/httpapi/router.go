// Package httpapi exposes the store, scan resolver and exchange formats over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"booktrack/internal/core"
	"booktrack/internal/exchange"
	"booktrack/internal/scan"
)

// Handler serves the booktrack API.
type Handler struct {
	store    *core.Store
	service  *core.Service
	resolver *scan.Resolver
	logger   core.Logger
	gatherer prometheus.Gatherer
	archive  *exchange.Archiver
	maxBody  int64
}

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l core.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.gatherer = g
		}
	}
}

// WithArchive enables the /api/reports endpoints backed by a.
func WithArchive(a *exchange.Archiver) Option {
	return func(h *Handler) {
		h.archive = a
	}
}

// WithImportLimit caps the request body accepted by the import endpoints.
func WithImportLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// NewHandler wires the API to the store and resolver.
func NewHandler(store *core.Store, resolver *scan.Resolver, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		service:  core.NewService(store),
		resolver: resolver,
		logger:   discardLogger{},
		maxBody:  DefaultImportLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/ping", ping)
		api.GET("/state", h.getState)
		api.POST("/actions", h.postAction)

		api.POST("/scan/:flow", h.postScan)
		api.POST("/courses/:courseId/books/manual", h.postManualBook)

		api.GET("/export/state", h.exportState)
		api.GET("/export/report", h.exportReport)
		api.POST("/import/state", h.importState)
		api.POST("/import/roster/:classId", h.importRoster)

		api.POST("/reset", h.reset)

		if h.archive != nil {
			api.POST("/reports", h.archiveReport)
			api.GET("/reports", h.listReports)
			api.GET("/reports/:name", h.downloadReport)
		}
	}
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
