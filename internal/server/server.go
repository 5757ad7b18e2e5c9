// Package server exposes refinement over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/metrics"
	"github.com/valpere/listingfix/internal/orchestrator"
	"github.com/valpere/listingfix/internal/store"
	"github.com/valpere/listingfix/internal/validator"
)

// Refiner is the part of the orchestrator the server needs.
type Refiner interface {
	Refine(ctx context.Context, in internal.ProductInput) *orchestrator.Result
	Validator() *validator.Validator
}

type Option func(*Server)

// WithStore enables the refinement cache. fingerprint identifies the
// catalog results are produced under.
func WithStore(s *store.Store, fingerprint string) Option {
	return func(srv *Server) {
		srv.store = s
		srv.fingerprint = fingerprint
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

type Server struct {
	engine      *gin.Engine
	refiner     Refiner
	store       *store.Store
	fingerprint string
	version     string
	logger      *zap.Logger
}

// RefineResponse is the output record plus how it was produced.
type RefineResponse struct {
	internal.ProductOutput
	ID     string `json:"id,omitempty"`
	State  string `json:"state"`
	Cached bool   `json:"cached"`
}

// ValidateRequest asks for the violations of an existing output record.
type ValidateRequest struct {
	Input  internal.ProductInput  `json:"input"`
	Output internal.ProductOutput `json:"output"`
}

type ValidateResponse struct {
	Compliant  bool                           `json:"compliant"`
	Violations []internal.ViolationDescriptor `json:"violations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(refiner Refiner, version string, opts ...Option) *Server {
	s := &Server{
		engine:  gin.New(),
		refiner: refiner,
		version: version,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.observe())

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/refine", s.refine)
	s.engine.POST("/validate", s.validate)
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) refine(c *gin.Context) {
	var in internal.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid input record: %v", err)})
		return
	}

	ctx := c.Request.Context()
	var key string
	if s.store != nil {
		key = store.InputKey(in, s.fingerprint)
		out, found, err := s.store.GetCachedRefinement(ctx, key)
		if err != nil {
			s.logger.Warn("cache lookup failed", zap.Error(err))
		} else if found {
			c.JSON(http.StatusOK, RefineResponse{ProductOutput: *out, State: string(orchestrator.StateCompliant), Cached: true})
			return
		}
	}

	r := s.refiner.Refine(ctx, in)
	if s.store != nil {
		if err := s.store.SaveRefinement(ctx, key, in, r); err != nil {
			s.logger.Warn("failed to store refinement", zap.String("refinement", r.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, RefineResponse{ProductOutput: r.Output(), ID: r.ID, State: string(r.State)})
}

func (s *Server) validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	vs := s.refiner.Validator().Validate(content.FromOutput(req.Output), content.NewContext(req.Input))
	descriptors := make([]internal.ViolationDescriptor, 0, len(vs))
	for _, v := range vs {
		descriptors = append(descriptors, v.Descriptor())
	}
	c.JSON(http.StatusOK, ValidateResponse{Compliant: len(vs) == 0, Violations: descriptors})
}
