package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/RowanDark/cryptex/internal/config"
	"github.com/RowanDark/cryptex/internal/logging"
)

func TestServeBootsAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.HTTP.Addr = httpLis.Addr().String()
	cfg.GRPC.Addr = grpcLis.Addr().String()
	cfg.Recipes.Dir = t.TempDir()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, cfg, logging.NewNop(), httpLis, grpcLis)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.HTTP.Addr + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "ok"
	}, 2*time.Second, 20*time.Millisecond)

	conn, err := grpc.NewClient(cfg.GRPC.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(checkCtx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestServeRejectsUnreadableRecipes(t *testing.T) {
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer httpLis.Close()
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer grpcLis.Close()

	blocker := filepath.Join(t.TempDir(), "recipes")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	cfg := config.Default()
	cfg.Recipes.Dir = blocker

	err = serve(context.Background(), cfg, logging.NewNop(), httpLis, grpcLis)
	require.ErrorContains(t, err, "load recipes")
}
