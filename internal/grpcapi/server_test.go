package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/universal-ai-tools/predictord/internal/config"
	"github.com/universal-ai-tools/predictord/internal/dispatch"
	"github.com/universal-ai-tools/predictord/internal/grpcapi/predictorpb"
	"github.com/universal-ai-tools/predictord/internal/httpapi"
	"github.com/universal-ai-tools/predictord/internal/state"
	"github.com/universal-ai-tools/predictord/internal/tensor"
)

func dialTestServer(t *testing.T, srv *Server) (predictorpb.PredictorClient, func()) {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := srv.NewGRPCServer()
	go func() {
		_ = gs.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufconn: %v", err)
	}

	client := predictorpb.NewPredictorClient(conn)
	cleanup := func() {
		conn.Close()
		gs.Stop()
	}
	return client, cleanup
}

func testGRPCServer(t *testing.T, bufferSize int, enqueueTimeout time.Duration) (*Server, map[string]chan *dispatch.Message, *state.SharedState) {
	t.Helper()
	cfg := &config.Config{
		Models: []config.ModelConfig{{Name: "squeezenet", Path: "squeezenet1.0-8.onnx"}},
		Server: config.ServerConfig{HTTPPort: 8080, GRPCPort: 50051, BufferSize: bufferSize, NumThreads: 1},
	}
	fabric, queues := dispatch.Build(cfg)
	shared := state.New(cfg)
	metrics := httpapi.NewMetrics(prometheus.NewRegistry())
	return New(fabric, shared, metrics, enqueueTimeout, zap.NewNop()), queues, shared
}

func TestGRPCPredictSuccess(t *testing.T) {
	srv, queues, shared := testGRPCServer(t, 4, time.Second)
	shared.SetReady("squeezenet", true)
	client, cleanup := dialTestServer(t, srv)
	defer cleanup()

	go func() {
		msg := <-queues["squeezenet"]
		msg.Reply.Succeed([]tensor.Tensor{msg.Input})
	}()

	in, _ := tensor.New([]int64{1, 2}, []float32{1, 2})
	resp, err := client.Predict(context.Background(), &predictorpb.PredictRequest{ModelName: "squeezenet", Input: in})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ModelName != "squeezenet" {
		t.Fatalf("unexpected model name: %s", resp.ModelName)
	}
}

func TestGRPCPredictUnknownModelReturnsNotFound(t *testing.T) {
	srv, _, _ := testGRPCServer(t, 4, time.Second)
	client, cleanup := dialTestServer(t, srv)
	defer cleanup()

	in, _ := tensor.New([]int64{1}, []float32{1})
	_, err := client.Predict(context.Background(), &predictorpb.PredictRequest{ModelName: "does-not-exist", Input: in})
	if st, ok := status.FromError(err); !ok || st.Code().String() != "NotFound" {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGRPCReadyReflectsSharedState(t *testing.T) {
	srv, _, shared := testGRPCServer(t, 4, time.Second)
	client, cleanup := dialTestServer(t, srv)
	defer cleanup()

	resp, err := client.Ready(context.Background(), &predictorpb.ReadyRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Healthy {
		t.Fatal("expected not healthy before any model loads")
	}

	shared.SetReady("squeezenet", true)
	resp, err = client.Ready(context.Background(), &predictorpb.ReadyRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Healthy {
		t.Fatal("expected healthy once all models loaded")
	}
}
