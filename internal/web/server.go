// Package web provides the JSON HTTP API for threadline.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/logging"
	"github.com/evcraddock/threadline/internal/safety"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 30 * time.Second

// Options tunes the API.
type Options struct {
	// MaxDepth is the deepest comment that still accepts replies.
	MaxDepth int
}

// Server is the API HTTP server.
type Server struct {
	comments *comment.Service
	votes    *comment.VoteService
	analyzer *safety.Analyzer
	opts     Options
	mux      *http.ServeMux
	handler  http.Handler
}

// NewServer creates an API server over the lifecycle and vote services.
func NewServer(comments *comment.Service, votes *comment.VoteService, analyzer *safety.Analyzer, opts Options) *Server {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = comment.DefaultMaxDepth
	}

	s := &Server{
		comments: comments,
		votes:    votes,
		analyzer: analyzer,
		opts:     opts,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/comments", s.apiListComments)
	s.mux.HandleFunc("POST /api/comments", s.apiCreateComment)
	s.mux.HandleFunc("GET /api/comments/{id}", s.apiGetComment)
	s.mux.HandleFunc("PUT /api/comments/{id}", s.apiUpdateComment)
	s.mux.HandleFunc("DELETE /api/comments/{id}", s.apiDeleteComment)
	s.mux.HandleFunc("GET /api/comments/{id}/replies", s.apiListReplies)
	s.mux.HandleFunc("POST /api/comments/{id}/approve", s.apiModerate(s.comments.Approve))
	s.mux.HandleFunc("POST /api/comments/{id}/reject", s.apiModerate(s.comments.Reject))
	s.mux.HandleFunc("POST /api/comments/{id}/pin", s.apiModerate(s.comments.Pin))
	s.mux.HandleFunc("POST /api/comments/{id}/unpin", s.apiModerate(s.comments.Unpin))

	s.mux.HandleFunc("POST /api/comments/{id}/vote", s.apiVote)
	s.mux.HandleFunc("DELETE /api/comments/{id}/vote", s.apiRemoveVote)
	s.mux.HandleFunc("GET /api/comments/{id}/votes", s.apiVoteStats)

	s.mux.HandleFunc("POST /api/analyze", s.apiAnalyze)
	s.mux.HandleFunc("GET /api/stats", s.apiStats)
	s.mux.HandleFunc("GET /api/mentions/{user}", s.apiListMentions)

	s.handler = logging.RequestLogger(s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving API: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
