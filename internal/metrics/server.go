package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the default Prometheus registry on /metrics.
// Server 在 /metrics 上暴露默认的 Prometheus 注册表。
type Server struct {
	server   *http.Server
	listener net.Listener
	log      *zap.SugaredLogger
}

// Listen binds addr and starts serving in the background.
// Listen 绑定 addr 并在后台开始服务。
func Listen(addr string, log *zap.SugaredLogger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		log:      log,
	}

	go func() {
		log.Infof("Metrics server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting at most until ctx is done.
// Shutdown 停止服务，最多等待到 ctx 结束。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
