package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/fintweet/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// RouterOption adds optional routes to the engine.
type RouterOption func(*gin.Engine)

// WithMCP mounts an MCP streamable HTTP handler at /mcp.
func WithMCP(handler http.Handler) RouterOption {
	return func(router *gin.Engine) {
		router.Any("/mcp", gin.WrapH(handler))
	}
}

// NewRouter builds the gin engine for h.
func NewRouter(h *Handler, opts ...RouterOption) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if logger.IsVerbose() {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	v1.POST("/records", h.IngestRecords)
	v1.GET("/query", h.Query)
	v1.GET("/pivot", h.Pivot)
	v1.GET("/mentions", h.Mentions)
	v1.GET("/tickers", h.Tickers)

	for _, opt := range opts {
		opt(router)
	}
	return router
}

// Run serves router on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, router http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
