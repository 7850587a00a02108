package api

import (
	"dashapi/config"
	"dashapi/registry"

	"github.com/gin-gonic/gin"
)

func SetupRouter(ext Extractor, jobs *registry.Registry, tr Translator, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	h := NewHandler(ext, jobs, tr, cfg)

	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(RateLimitMiddleware(cfg))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "jobs": jobs.Len()})
	})

	r.GET("/progress/:downloadId", h.handleProgress)
	r.POST("/formats", h.handleFormats)
	r.POST("/download", h.handleDownload)
	r.POST("/download-link", h.handleDownloadLink)
	r.GET("/proxy-download", h.handleProxyDownload)
	r.POST("/translate", h.handleTranslate)

	return r
}
