package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/lineage/internal/core"
	"github.com/agenthands/lineage/internal/core/model"
	"github.com/agenthands/lineage/internal/logger"
)

// MaxDocumentBytes bounds the body of POST /tree.
const MaxDocumentBytes = 32 << 20

const shutdownTimeout = 10 * time.Second

type Server struct {
	Lineage *core.Lineage
	// AdminToken guards the write routes when non-empty.
	AdminToken string
	// WithClosure is the default for POST /tree when ?closure= is absent.
	WithClosure bool
}

func NewServer(l *core.Lineage, adminToken string, withClosure bool) *Server {
	return &Server{
		Lineage:     l,
		AdminToken:  adminToken,
		WithClosure: withClosure,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/person/:id", s.GetPerson)
	r.GET("/person/:id/descendants", s.GetDescendants)
	r.GET("/person/:id/ancestors", s.GetAncestors)
	r.GET("/search", s.Search)
	r.GET("/tree", s.GetTree)

	admin := r.Group("/", s.requireAdmin)
	admin.POST("/tree", s.PostTree)
	admin.POST("/closure/rebuild", s.RebuildClosure)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

// requireAdmin accepts the token as a bearer credential or in X-Admin-Token.
func (s *Server) requireAdmin(c *gin.Context) {
	if s.AdminToken == "" {
		c.Next()
		return
	}
	token := c.GetHeader("X-Admin-Token")
	if auth := c.GetHeader("Authorization"); token == "" && strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// writeError maps service errors onto status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrMalformedDocument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) Health(c *gin.Context) {
	h, err := s.Lineage.HealthCheck(c.Request.Context())
	if err != nil {
		logger.Warn("Health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, h)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) GetPerson(c *gin.Context) {
	detail, err := s.Lineage.GetPerson(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) GetDescendants(c *gin.Context) {
	id := c.Param("id")
	rows, err := s.Lineage.GetDescendants(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "descendants": rows})
}

func (s *Server) GetAncestors(c *gin.Context) {
	id := c.Param("id")
	rows, err := s.Lineage.GetAncestors(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "ancestors": rows})
}

func (s *Server) Search(c *gin.Context) {
	q := c.Query("q")
	results, err := s.Lineage.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "results": results})
}

// GetTree returns the last ingested document verbatim.
func (s *Server) GetTree(c *gin.Context) {
	ds, err := s.Lineage.Dataset(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Lineage-Run-Id", ds.RunID)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(ds.Payload))
}

// PostTree ingests the request body. ?reset=true clears the store first and
// ?closure= overrides the configured closure rebuild.
func (s *Server) PostTree(c *gin.Context) {
	reset, err := boolQuery(c, "reset", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reset parameter"})
		return
	}
	withClosure, err := boolQuery(c, "closure", s.WithClosure)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid closure parameter"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	report, err := s.Lineage.Ingest(c.Request.Context(), raw, core.IngestOptions{Reset: reset, WithClosure: withClosure})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) RebuildClosure(c *gin.Context) {
	rows, err := s.Lineage.RebuildClosure(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closure_rows": rows})
}

func boolQuery(c *gin.Context, key string, def bool) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
