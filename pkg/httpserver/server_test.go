package httpserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/httpserver"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func waitForAddr(t *testing.T, s *httpserver.Server) net.Addr {
	t.Helper()
	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = s.Addr()
		return addr != nil
	}, 2*time.Second, 10*time.Millisecond)
	return addr
}

func TestServer_RunUntilCancelled(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"), httpserver.WithLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
	}()

	addr := waitForAddr(t, srv)
	resp, err := http.Get("http://" + addr.String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	srv := httpserver.New(httpserver.WithAddr(ln.Addr().String()), httpserver.WithLogger(quiet))
	err = srv.Run(context.Background(), nil)
	require.ErrorIs(t, err, httpserver.ErrStart)
}

func TestServer_RunTwice(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"), httpserver.WithLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Run(ctx, nil) }()
	waitForAddr(t, srv)

	err := srv.Run(ctx, nil)
	require.ErrorIs(t, err, httpserver.ErrStart)
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { httpserver.WithAddr("") })
	assert.Panics(t, func() { httpserver.WithReadTimeout(0) })
	assert.Panics(t, func() { httpserver.WithWriteTimeout(-time.Second) })
	assert.Panics(t, func() { httpserver.WithIdleTimeout(0) })
	assert.Panics(t, func() { httpserver.WithShutdownTimeout(0) })
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	ok := httpserver.HealthCheck{Name: "ok", Check: func(context.Context) error { return nil }}
	bad := httpserver.HealthCheck{Name: "pg", Check: func(context.Context) error { return errors.New("down") }}

	tests := []struct {
		name   string
		checks []httpserver.HealthCheck
		code   int
		body   string
	}{
		{"liveness", nil, http.StatusOK, "ALIVE"},
		{"ready", []httpserver.HealthCheck{ok}, http.StatusOK, "READY"},
		{"not ready", []httpserver.HealthCheck{ok, bad}, http.StatusServiceUnavailable, "NOT_READY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			httpserver.HealthCheckHandler(quiet, tt.checks...)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}
