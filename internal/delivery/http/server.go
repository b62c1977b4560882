package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/rs/zerolog"
)

// readHeaderTimeout bounds slow clients. There is no write timeout because
// the event stream stays open.
const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server that exposes the notification center.
type Server struct {
	*http.Server
	logger zerolog.Logger
}

// NewServer sets the gin mode and binds the router to the configured address.
func NewServer(cfg *config.Config, handlers *Handlers, logger *zerolog.Logger) *Server {
	log := logger.With().Str("layer", "http_server").Logger()

	gin.SetMode(cfg.HTTP.GinMode)
	log.Info().Str("addr", cfg.HTTP.Port).Str("mode", cfg.HTTP.GinMode).Msg("initializing http server")

	server := &http.Server{
		Addr:              cfg.HTTP.Port,
		Handler:           NewRouter(handlers),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return &Server{server, log}
}

// NewRouter builds the gin engine with every API route and the health check.
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), accessLog(handlers.logger))

	handlers.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// accessLog writes one debug line per request, warn for 5xx.
func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request served")
	}
}
