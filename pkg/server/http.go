package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/entrhq/playwright-mcp/pkg/metrics"
)

const (
	// MCPPath is the streamable HTTP endpoint
	MCPPath = "/mcp"

	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 5 * time.Second
)

//go:embed inspector.html
var inspectorPage []byte

// Router builds the HTTP surface:
//
//	ANY  /mcp              streamable HTTP MCP endpoint
//	GET  /health           liveness and browser state
//	GET  /metrics          Prometheus metrics (when enabled)
//	GET  /openmcp.json     tool catalogue
//	GET  /inspector        browser UI for trying tools
//	POST /api/tools/:name  call a tool with a JSON object body
func (s *Server) Router(debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestID())
	router.Use(s.requestLogger())
	if s.metrics != nil {
		router.Use(metrics.Middleware(s.metrics))
	}
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Authorization",
			"Mcp-Session-Id",
			"Mcp-Protocol-Version",
			"Last-Event-ID",
			requestIDHeader,
		},
		ExposeHeaders: []string{"Mcp-Session-Id", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	// Tool traffic drives the shared browser, so only it is rate limited.
	limited := router.Group("")
	if s.rateLimit.RequestsPerSecond > 0 {
		limited.Use(rateLimiter(s.rateLimit))
	}

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPPath),
	)
	limited.Any(MCPPath, gin.WrapH(streamable))
	limited.POST("/api/tools/:name", s.handleToolCall)

	router.GET("/health", s.handleHealth)
	router.GET("/openmcp.json", s.handleCatalogue)
	router.GET("/inspector", s.handleInspector)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return router
}

// requestID tags each request with an ID, reusing the caller's if sent.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debugf("%s %s %d %s request_id=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Microsecond), c.GetString("request_id"))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"name":    s.info.Name,
		"version": s.info.Version,
		"tools":   s.registry.Count(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	}
	if s.status != nil {
		body["browser"] = gin.H{
			"initialized": s.status.IsInitialized(),
			"url":         s.status.CurrentURL(),
			"launches":    s.status.Launches(),
		}
	}
	c.JSON(http.StatusOK, body)
}

// catalogue describes the server and its tools for discovery clients.
type catalogue struct {
	OpenMCP  string     `json:"openmcp"`
	Info     Info       `json:"info"`
	Endpoint string     `json:"endpoint"`
	Tools    []mcp.Tool `json:"tools"`
}

func (s *Server) handleCatalogue(c *gin.Context) {
	list := s.registry.List()
	defs := make([]mcp.Tool, 0, len(list))
	for _, tool := range list {
		defs = append(defs, tool.Definition())
	}

	c.JSON(http.StatusOK, catalogue{
		OpenMCP:  "1.0",
		Info:     s.info,
		Endpoint: MCPPath,
		Tools:    defs,
	})
}

func (s *Server) handleInspector(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", inspectorPage)
}

func (s *Server) handleToolCall(c *gin.Context) {
	name := c.Param("name")

	args := map[string]any{}
	if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}

	resp, err := s.Invoke(c.Request.Context(), name, args)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListenAndServe serves the HTTP surface on addr until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, debug bool) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(debug),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          s.logger.StdLogger(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("serving MCP over HTTP on %s%s", addr, MCPPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Infof("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}
