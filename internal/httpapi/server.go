// Package httpapi implements the HTTP front end: a thin
// gin-gonic router that turns /predict into a dispatch.Message, waits on
// its reply, and maps every failure mode the dispatch fabric and worker
// can produce onto an HTTP status code.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/universal-ai-tools/predictord/internal/dispatch"
	"github.com/universal-ai-tools/predictord/internal/state"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

// Server wires the dispatch fabric and shared readiness state into an
// HTTP router.
type Server struct {
	fabric         *dispatch.Fabric
	shared         *state.SharedState
	logger         *zap.Logger
	metrics        *Metrics
	enqueueTimeout time.Duration
}

// New builds a Server. enqueueTimeout bounds how long /predict waits for
// queue space before returning 503.
func New(fabric *dispatch.Fabric, shared *state.SharedState, metrics *Metrics, enqueueTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		fabric:         fabric,
		shared:         shared,
		logger:         logger,
		metrics:        metrics,
		enqueueTimeout: enqueueTimeout,
	}
}

// Router builds the gin.Engine serving this Server's routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.Default())

	r.POST("/predict", s.handlePredict)
	r.GET("/models", s.handleModels)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

type predictRequest struct {
	ModelName string        `json:"model_name" binding:"required"`
	Data      tensor.Tensor `json:"data" binding:"required"`
}

type predictResponse struct {
	PredictionID string        `json:"prediction_id"`
	ModelName    string        `json:"model_name"`
	Data         tensor.Tensor `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlePredict maps failures onto status codes:
//
//	unknown model          -> 404
//	model not ready        -> 503
//	malformed/invalid input -> 400
//	queue full past deadline -> 503
//	worker gone             -> 502
//	inference failed        -> 502
func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "unknown", err)
		return
	}

	if !s.fabric.Has(req.ModelName) {
		s.fail(c, http.StatusNotFound, req.ModelName, errors.New("unknown model"))
		return
	}
	if err := req.Data.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, req.ModelName, err)
		return
	}
	if !s.shared.IsReady(req.ModelName) {
		s.fail(c, http.StatusServiceUnavailable, req.ModelName, errors.New("model not ready"))
		return
	}

	start := time.Now()
	msg := dispatch.NewMessage(req.ModelName, req.Data)

	enqueueCtx, cancel := context.WithTimeout(c.Request.Context(), s.enqueueTimeout)
	defer cancel()

	if err := s.fabric.Send(enqueueCtx, msg); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrQueueFull):
			s.fail(c, http.StatusServiceUnavailable, req.ModelName, err)
		case errors.Is(err, dispatch.ErrWorkerGone):
			s.fail(c, http.StatusBadGateway, req.ModelName, err)
		default:
			s.fail(c, http.StatusNotFound, req.ModelName, err)
		}
		return
	}

	res, err := msg.Reply.Await(c.Request.Context())
	if err != nil {
		// Client gave up waiting; the worker still delivers into the
		// channel, it just has no one left to read it.
		s.logger.Info("client disconnected while awaiting reply",
			zap.String("model", req.ModelName), zap.String("prediction_id", msg.PredictionID.String()))
		return
	}
	if res.Err != nil {
		s.fail(c, http.StatusBadGateway, req.ModelName, res.Err)
		return
	}

	s.metrics.Observe(req.ModelName, "ok", time.Since(start).Seconds())
	c.JSON(http.StatusOK, predictResponse{
		PredictionID: msg.PredictionID.String(),
		ModelName:    req.ModelName,
		Data:         res.Output[0],
	})
}

func (s *Server) fail(c *gin.Context, status int, model string, err error) {
	s.metrics.Observe(model, http.StatusText(status), 0)
	s.logger.Warn("predict request failed", zap.String("model", model), zap.Int("status", status), zap.Error(err))
	c.JSON(status, errorResponse{Error: err.Error()})
}

type modelStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

func (s *Server) handleModels(c *gin.Context) {
	names := s.fabric.Names()
	out := make([]modelStatus, 0, len(names))
	for _, name := range names {
		out = append(out, modelStatus{Name: name, Ready: s.shared.IsReady(name)})
		s.metrics.SetQueueDepth(name, s.fabric.QueueDepth(name))
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"healthy": s.shared.AllReady()})
}
