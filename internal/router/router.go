package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"veo-director/internal/handler"
	"veo-director/internal/metrics"
)

type Options struct {
	Handler handler.Handler
	// Metrics may be nil, which disables both the middleware and the scrape endpoint.
	Metrics     *metrics.Collector
	MetricsPath string
}

func SetupRouter(r *gin.Engine, opts Options) {
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	hdl := opts.Handler
	{
		api.GET("/styles", hdl.ListStyles)
		api.GET("/credential", hdl.GetCredential)
		api.POST("/credential", hdl.SetCredential)

		api.GET("/session", hdl.ListSessions)
		api.POST("/session", hdl.CreateSession)
		api.GET("/session/:id", hdl.GetSession)
		api.DELETE("/session/:id", hdl.DeleteSession)
		api.GET("/session/:id/events", hdl.Events)
		api.POST("/session/:id/video", hdl.UploadVideo)
		api.DELETE("/session/:id/video", hdl.RemoveVideo)
		api.POST("/session/:id/analyze", hdl.Analyze)
		api.PUT("/session/:id/style", hdl.SelectStyle)
		api.POST("/session/:id/script", hdl.Script)
		api.PATCH("/session/:id/scenes/:sceneId", hdl.EditPrompt)
		api.POST("/session/:id/scenes/:sceneId/generate", hdl.GenerateScene)
		api.POST("/session/:id/scenes/:sceneId/cancel", hdl.CancelScene)
		api.POST("/session/:id/generate-all", hdl.GenerateAll)
		api.POST("/session/:id/cancel", hdl.CancelBatch)
		api.GET("/session/:id/export", hdl.Export)

		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}

// metricsMiddleware labels requests by route template so ids do not explode the label set.
func metricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
