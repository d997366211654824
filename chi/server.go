// Package chi serves the question endpoint over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/refdex"
	gochi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultRequestTimeout bounds a single request, model call included.
const DefaultRequestTimeout = 60 * time.Second

// Server answers questions with reference page URLs.
type Server struct {
	addr       string
	resolver   refdex.Resolver
	logger     *slog.Logger
	router     gochi.Router
	httpServer *http.Server
}

// NewServer creates a Server listening on addr. A nil logger discards logs.
func NewServer(addr string, resolver refdex.Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		addr:     addr,
		resolver: resolver,
		logger:   logger,
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      DefaultRequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Answer is the response body of the question endpoint.
type Answer struct {
	Answer   string        `json:"answer"`
	URLs     []string      `json:"urls"`
	Keywords []string      `json:"keywords"`
	Status   refdex.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) buildRouter() gochi.Router {
	r := gochi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(DefaultRequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/question_answer", s.handleQuestion)

	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.URL.Query().Get("question"))
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question required"})
		return
	}

	res, err := s.resolver.Resolve(r.Context(), question)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Answer{
		Answer:   FormatAnswer(res),
		URLs:     res.URLs,
		Keywords: res.Keywords,
		Status:   res.Status,
	})
}

// FormatAnswer renders the resolution as a numbered URL list.
func FormatAnswer(res *refdex.Resolution) string {
	switch res.Status {
	case refdex.StatusNoKeywords:
		return "No keywords could be derived from the question."
	case refdex.StatusNoMatch:
		return "No matching reference pages found."
	}

	parts := make([]string, len(res.URLs))
	for i, u := range res.URLs {
		parts[i] = fmt.Sprintf("%d. %s", i+1, u)
	}
	return strings.Join(parts, ", ")
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch refdex.ErrorCode(err) {
	case refdex.EINVALID:
		status = http.StatusBadRequest
	case refdex.ENOTFOUND:
		status = http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	msg := refdex.ErrorMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("question failed", "err", err)
		msg = "Internal error."
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		begin := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(begin),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves until Shutdown is called. It returns nil at once
// when Shutdown already happened.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting for in-flight requests until ctx is
// done. It may be called before or concurrently with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
