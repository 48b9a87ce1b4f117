package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Server owns the HTTP listener and routes.
type Server struct {
	logger  *zap.Logger
	addr    string
	handler *Handler
}

func NewServer(logger *zap.Logger, host string, port int, handler *Handler) *Server {
	return &Server{
		logger:  logger,
		addr:    fmt.Sprintf("%s:%d", host, port),
		handler: handler,
	}
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handler.Health)
	mux.HandleFunc("/api/extract", s.handler.Extract)
	mux.HandleFunc("/api/search", s.handler.SearchAndExtract)
	mux.HandleFunc("/", s.handler.Root)

	s.logger.Info("starting API server", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, mux)
}
