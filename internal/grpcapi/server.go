// Package grpcapi implements the gRPC front end: the same
// dispatch-and-await flow as internal/httpapi, mapped onto gRPC status
// codes instead of HTTP ones.
package grpcapi

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/universal-ai-tools/predictord/internal/dispatch"
	"github.com/universal-ai-tools/predictord/internal/grpcapi/predictorpb"
	"github.com/universal-ai-tools/predictord/internal/httpapi"
	"github.com/universal-ai-tools/predictord/internal/state"
)

// Server implements predictorpb.PredictorServer.
type Server struct {
	fabric         *dispatch.Fabric
	shared         *state.SharedState
	logger         *zap.Logger
	metrics        *httpapi.Metrics
	enqueueTimeout time.Duration
}

// New builds a Server.
func New(fabric *dispatch.Fabric, shared *state.SharedState, metrics *httpapi.Metrics, enqueueTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		fabric:         fabric,
		shared:         shared,
		logger:         logger,
		metrics:        metrics,
		enqueueTimeout: enqueueTimeout,
	}
}

// NewGRPCServer builds a *grpc.Server with the zstd compressor registered
// and this Server mounted, ready to Serve on a listener.
func (s *Server) NewGRPCServer() *grpc.Server {
	RegisterZstdCompressor()
	gs := grpc.NewServer()
	predictorpb.RegisterPredictorServer(gs, s)
	return gs
}

// Predict implements predictorpb.PredictorServer, mapping failures to
// status codes:
//
//	unknown model            -> NotFound
//	invalid input             -> InvalidArgument
//	model not ready           -> Unavailable
//	queue full past deadline  -> ResourceExhausted
//	worker gone               -> Unavailable
//	inference failed          -> Internal
func (s *Server) Predict(ctx context.Context, req *predictorpb.PredictRequest) (*predictorpb.PredictResponse, error) {
	if !s.fabric.Has(req.ModelName) {
		s.observe(req.ModelName, codes.NotFound)
		return nil, status.Errorf(codes.NotFound, "unknown model %q", req.ModelName)
	}
	if err := req.Input.Validate(); err != nil {
		s.observe(req.ModelName, codes.InvalidArgument)
		return nil, status.Errorf(codes.InvalidArgument, "invalid input: %v", err)
	}
	if !s.shared.IsReady(req.ModelName) {
		s.observe(req.ModelName, codes.Unavailable)
		return nil, status.Errorf(codes.Unavailable, "model %q not ready", req.ModelName)
	}

	start := time.Now()
	msg := dispatch.NewMessage(req.ModelName, req.Input)

	enqueueCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout)
	defer cancel()

	if err := s.fabric.Send(enqueueCtx, msg); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrQueueFull):
			s.observe(req.ModelName, codes.ResourceExhausted)
			return nil, status.Errorf(codes.ResourceExhausted, "queue full: %v", err)
		case errors.Is(err, dispatch.ErrWorkerGone):
			s.observe(req.ModelName, codes.Unavailable)
			return nil, status.Errorf(codes.Unavailable, "worker gone: %v", err)
		default:
			s.observe(req.ModelName, codes.NotFound)
			return nil, status.Errorf(codes.NotFound, "%v", err)
		}
	}

	res, err := msg.Reply.Await(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	if res.Err != nil {
		s.observe(req.ModelName, codes.Internal)
		return nil, status.Errorf(codes.Internal, "inference failed: %v", res.Err)
	}

	s.observe(req.ModelName, codes.OK)
	s.metrics.Observe(req.ModelName, "ok", time.Since(start).Seconds())
	return &predictorpb.PredictResponse{
		PredictionID: msg.PredictionID.String(),
		ModelName:    req.ModelName,
		Output:       res.Output[0],
	}, nil
}

// ListModels implements predictorpb.PredictorServer.
func (s *Server) ListModels(ctx context.Context, _ *predictorpb.ListModelsRequest) (*predictorpb.ListModelsResponse, error) {
	names := s.fabric.Names()
	models := make([]predictorpb.ModelStatus, 0, len(names))
	for _, name := range names {
		models = append(models, predictorpb.ModelStatus{Name: name, Ready: s.shared.IsReady(name)})
		s.metrics.SetQueueDepth(name, s.fabric.QueueDepth(name))
	}
	return &predictorpb.ListModelsResponse{Models: models}, nil
}

// Ready implements predictorpb.PredictorServer.
func (s *Server) Ready(ctx context.Context, _ *predictorpb.ReadyRequest) (*predictorpb.ReadyResponse, error) {
	return &predictorpb.ReadyResponse{Healthy: s.shared.AllReady()}, nil
}

func (s *Server) observe(model string, code codes.Code) {
	if code == codes.OK {
		return
	}
	s.metrics.Observe(model, code.String(), 0)
	s.logger.Warn("predict rpc failed", zap.String("model", model), zap.String("code", code.String()))
}
