package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/discord"
	"github.com/raffaelramalhorosa/bunker-status/internal/feed"
	"github.com/raffaelramalhorosa/bunker-status/internal/fetcher"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
	"github.com/raffaelramalhorosa/bunker-status/internal/store"
)

// Server holds dependencies for the HTTP handlers.
type Server struct {
	fetcher *fetcher.Fetcher
	store   *store.Store
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New wires up routes and returns a ready-to-use Server.
func New(f *fetcher.Fetcher, s *store.Store, logger *slog.Logger) *Server {
	srv := &Server{fetcher: f, store: s, logger: logger, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ---------- Routes ----------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/bunkers", s.handleBunkers)
	s.mux.HandleFunc("GET /api/bunkers/feed.atom", s.handleFeed)
}

// ---------- Handlers ----------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBunkers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	res, err := s.fetcher.Fetch(r.Context())
	if err != nil {
		s.writeFetchError(w, err)
		return
	}

	if res.RateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("wait %d seconds before making a new request", res.RetryAfter))
		return
	}

	s.logger.Info("bunkers served", "source", res.Status.Source, "bunkers", len(res.Status.Bunkers))
	writeJSON(w, http.StatusOK, res.Status)
}

func (s *Server) writeFetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, fetcher.ErrMissingConfig) {
		writeError(w, http.StatusInternalServerError, "server configuration incomplete, contact the administrator")
		return
	}

	var apiErr *discord.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error("upstream request failed", "status", apiErr.StatusCode, "body", apiErr.Body)
		writeError(w, apiErr.StatusCode, "error fetching data: "+apiErr.Status)
		return
	}

	s.logger.Error("fetch failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// handleFeed serves the stored snapshot. An empty store triggers one fetch
// through the same gate as /api/bunkers.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	status, ok := s.store.Latest()
	if !ok {
		res, err := s.fetcher.Fetch(r.Context())
		if err != nil {
			s.writeFetchError(w, err)
			return
		}
		if res.RateLimited {
			// a concurrent request may have filled the store meanwhile
			if status, ok = s.store.Latest(); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
				writeError(w, http.StatusTooManyRequests,
					fmt.Sprintf("wait %d seconds before making a new request", res.RetryAfter))
				return
			}
		} else {
			status = res.Status
		}
	}

	var buf bytes.Buffer
	if err := feed.Write(&buf, status, time.Now()); err != nil {
		s.logger.Error("feed encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", feed.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ---------- Helpers ----------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
