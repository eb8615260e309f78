package main

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/RowanDark/cryptex/internal/api"
	"github.com/RowanDark/cryptex/internal/health"
)

// startRemote serves the cipher API over httptest and the health service on
// a loopback listener, returning a config file pointing at both.
func startRemote(t *testing.T) string {
	t.Helper()
	srv, err := api.NewServer(api.Config{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcServer := grpc.NewServer()
	healthSvc := health.New()
	healthSvc.Register(grpcServer)
	healthSvc.SetServing()
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	extra := "client:\n  server: " + ts.URL + "\n  retries: 0\ngrpc:\n  addr: " + lis.Addr().String() + "\n"
	return writeConfig(t, t.TempDir(), extra)
}

func TestRemoteExec(t *testing.T) {
	cfg := startRemote(t)
	out, err := runCtlWithConfig(t, cfg, "", "remote", "exec", "rot13", "HELLO")
	require.NoError(t, err)
	assert.Equal(t, "URYYB\n", out)

	_, err = runCtlWithConfig(t, cfg, "", "remote", "exec", "enigma", "HELLO")
	require.ErrorContains(t, err, "400")
}

func TestRemotePipeline(t *testing.T) {
	cfg := startRemote(t)
	out, err := runCtlWithConfig(t, cfg, "", "remote", "pipeline", "--step", "rot13", "--step", "caesar_encode:shift=3,alphabet=ABCDEFGHIJKLMNOPQRSTUVWXYZ", "HELLO")
	require.NoError(t, err)
	assert.Equal(t, "XUBBE\n", out)
}

func TestRemoteOps(t *testing.T) {
	cfg := startRemote(t)
	out, err := runCtlWithConfig(t, cfg, "", "remote", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "vigenere_encode")
}

func TestRemoteHealth(t *testing.T) {
	cfg := startRemote(t)
	out, err := runCtlWithConfig(t, cfg, "", "remote", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "http: ok")
	assert.Contains(t, out, "SERVING")
}

func TestRemoteHealthUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	cfg := writeConfig(t, t.TempDir(), "client:\n  server: http://"+addr+"\n  retries: 0\n")
	_, err = runCtlWithConfig(t, cfg, "", "remote", "--timeout", "500ms", "health")
	require.ErrorContains(t, err, "http health")
}
