package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/hnimtadd/craft-redis/internal/network"
	"github.com/hnimtadd/craft-redis/internal/redis"
	"github.com/hnimtadd/craft-redis/internal/redis/resp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

type running struct {
	server *Server
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, opts Options) *running {
	t.Helper()
	registry := prometheus.NewRegistry()
	controller := redis.NewController(redis.Options{Logger: quietLogger(), Registerer: registry})
	opts.Gatherer = registry
	opts.Logger = quietLogger()
	srv := NewServer(controller, opts)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{server: srv, cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- srv.ListenAndServe(ctx) }()
	require.NotNil(t, srv.Addr())
	t.Cleanup(cancel)
	return r
}

func (r *running) dial(t *testing.T) network.Connection {
	t.Helper()
	port := r.server.Addr().(*net.TCPAddr).Port
	conn, err := network.Dial(context.Background(), fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (r *running) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerServesClients(t *testing.T) {
	r := start(t, Options{})

	first, second := r.dial(t), r.dial(t)
	reply, err := first.WriteThenRead(resp.EncodeRequest("SET", "foo", "bar"))
	require.NoError(t, err)
	assert.Equal(t, resp.SimpleStringData{Data: "OK"}, reply)

	reply, err = second.WriteThenRead(resp.EncodeRequest("GET", "foo"))
	require.NoError(t, err)
	assert.Equal(t, resp.BulkStringData{Data: "bar"}, reply)

	r.stop(t)

	// Live sessions are closed with the server.
	_, err = first.WriteThenRead(resp.EncodeRequest("PING"))
	assert.Error(t, err)
}

func TestServerBindFailure(t *testing.T) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	defer l.Close()

	srv := NewServer(redis.NewController(redis.Options{Logger: quietLogger()}), Options{
		Port:   uint16(l.Addr().(*net.TCPAddr).Port),
		Logger: quietLogger(),
	})
	assert.Error(t, srv.ListenAndServe(context.Background()))
	assert.Nil(t, srv.Addr())
}

func TestServerMetrics(t *testing.T) {
	metricsAddr := freeAddr(t)
	r := start(t, Options{MetricsAddress: metricsAddr})

	conn := r.dial(t)
	_, err := conn.WriteThenRead(resp.EncodeRequest("PING"))
	require.NoError(t, err)

	var body string
	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + metricsAddr + "/metrics")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, `redis_commands_total{command="PING"} 1`)
	assert.Contains(t, body, "redis_connected_clients 1")
	assert.Contains(t, body, "redis_keys 0")

	r.stop(t)
}
