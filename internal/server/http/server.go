package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kyled7/queue-vision/internal/server/http/controllers"
	eventsvc "github.com/kyled7/queue-vision/internal/services/events"
	queuesvc "github.com/kyled7/queue-vision/internal/services/queues"
	"github.com/kyled7/queue-vision/internal/telemetry"
	logpkg "github.com/kyled7/queue-vision/pkg/log"
)

// Server is the REST + SSE + WebSocket gateway over the read services.
type Server struct {
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New wires the controller registry and middleware into a Server.
func New(queues *queuesvc.Service, events *eventsvc.Service, metrics *telemetry.Metrics, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.WithComponent("http")
	mux := http.NewServeMux()
	registry := controllers.NewControllerRegistry(queues, events, logger)
	registry.RegisterAllRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())
	s := &Server{
		srv:    &http.Server{Handler: cors(requestID(logRequests(logger, mux)))},
		logger: logger,
	}
	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close force-closes the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID stamps every request with an id for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(controllers.WithRequestID(r.Context(), id)))
	})
}

func logRequests(logger logpkg.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Str("request_id", controllers.RequestID(r.Context())),
			logpkg.Dur("took", time.Since(start)),
		)
	})
}
