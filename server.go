package mirror

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/alioygur/gores"
)

// Server exposes read-only views of both trees over HTTP. Requests are
// served one at a time since each one drives the client through a full
// session.
type Server struct {
	client *Client
	logger *slog.Logger
	mux    *http.ServeMux
	mu     sync.Mutex
}

func NewServer(client *Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{client: client, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /ls", s.handleList)
	s.mux.HandleFunc("GET /diff", s.handleDiff)
	return s
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var side Side
	switch r.URL.Query().Get("side") {
	case "", "server":
		side = SideServer
	case "client":
		side = SideClient
	default:
		gores.Error(w, http.StatusBadRequest, "side must be server or client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.client.Snapshot(r.Context(), side)
	if err != nil {
		s.logger.Error("list", "side", side, "error", err)
		gores.Error(w, http.StatusBadGateway, "failed to list tree")
		return
	}
	gores.JSON(w, http.StatusOK, snap)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff, err := s.client.Diff(r.Context())
	if err != nil {
		s.logger.Error("diff", "error", err)
		gores.Error(w, http.StatusBadGateway, "failed to diff trees")
		return
	}
	gores.JSON(w, http.StatusOK, diff)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
