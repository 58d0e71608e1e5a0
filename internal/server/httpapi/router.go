// Package httpapi is the HTTP surface of the file service.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Files   FileAPI
	Parse   TokenParser
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
}

// NewRouter registers the file routes:
//
//	POST   /upload            legacy upload, permanent credentials allowed
//	GET    /file/:fileId      legacy download
//	PUT    /v1/file           upload, permanent credentials allowed
//	GET    /v1/file/:fileId   download
//	DELETE /v1/file/:fileId   delete, permanent credentials allowed
//	GET    /v1/file           list own files
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger.With("module", "http")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cfg.Metrics.Middleware(), authenticate(cfg.Parse))

	h := &fileHandler{files: cfg.Files, logger: logger}
	permanent := requireAuth(true)

	r.POST("/upload", permanent, h.upload(true))
	r.GET("/file/:fileId", h.get)

	v1 := r.Group("/v1/file")
	v1.PUT("", permanent, h.upload(false))
	v1.GET("/:fileId", h.get)
	v1.DELETE("/:fileId", permanent, h.remove)
	v1.GET("", requireAuth(false), h.list)

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	r.NoRoute(func(c *gin.Context) {
		reply(c, http.StatusNotFound, gin.H{"message": "Not found"})
	})

	return r
}
