package web

import (
	"net/http"
	"strings"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/mention"
	"github.com/evcraddock/threadline/internal/safety"
)

type analyzeResponse struct {
	Report   safety.Report   `json:"report"`
	Reason   string          `json:"reason,omitempty"`
	Filtered string          `json:"filtered_content"`
	Mentions []mention.Token `json:"mentions"`
}

type statsResponse struct {
	comment.Statistics
	ApprovalRate  float64              `json:"approval_rate"`
	PendingRate   float64              `json:"pending_rate"`
	RejectionRate float64              `json:"rejection_rate"`
	Mentions      comment.MentionStats `json:"mentions"`
}

type mentionsResponse struct {
	User       string             `json:"user"`
	Unnotified int64              `json:"unnotified"`
	Mentions   []*comment.Mention `json:"mentions"`
}

// apiAnalyze runs the safety checks over arbitrary text without storing it.
func (s *Server) apiAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	report := s.analyzer.Analyze(req.Content)
	resp := analyzeResponse{
		Report:   report,
		Filtered: s.analyzer.FilterContent(req.Content),
		Mentions: mention.Parse(req.Content, mention.DefaultMax),
	}
	if report.FilteredReason != "" {
		resp.Reason = report.FilteredReason.Message()
	}
	if resp.Mentions == nil {
		resp.Mentions = []mention.Token{}
	}
	apiJSON(w, resp, http.StatusOK)
}

// apiStats reports moderation counts, optionally for one target.
func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	targetType, targetID := q.Get("target_type"), q.Get("target_id")
	if (targetType == "") != (targetID == "") {
		apiError(w, "target_type and target_id must be given together", http.StatusBadRequest)
		return
	}

	stats, err := s.comments.Statistics(r.Context(), targetType, targetID)
	if err != nil {
		apiServiceError(w, "loading statistics", err)
		return
	}

	mentions, err := s.comments.MentionStatistics(r.Context())
	if err != nil {
		apiServiceError(w, "loading mention statistics", err)
		return
	}

	apiJSON(w, statsResponse{
		Statistics:    stats,
		ApprovalRate:  stats.Rate(stats.Approved),
		PendingRate:   stats.Rate(stats.Pending),
		RejectionRate: stats.Rate(stats.Rejected),
		Mentions:      mentions,
	}, http.StatusOK)
}

// apiListMentions lists the mentions of a user, newest first. The optional
// notified parameter filters on delivery state.
func (s *Server) apiListMentions(w http.ResponseWriter, r *http.Request) {
	user, err := mention.ParseToken("@" + strings.TrimPrefix(r.PathValue("user"), "@"))
	if err != nil {
		apiServiceError(w, "parsing username", err)
		return
	}

	notified, err := queryBool(r, "notified")
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	mentions, err := s.comments.MentionsOf(r.Context(), user, notified, limit)
	if err != nil {
		apiServiceError(w, "loading mentions", err)
		return
	}
	unnotified, err := s.comments.UnnotifiedCount(r.Context(), user)
	if err != nil {
		apiServiceError(w, "counting mentions", err)
		return
	}
	if mentions == nil {
		mentions = []*comment.Mention{}
	}

	apiJSON(w, mentionsResponse{User: user, Unnotified: unnotified, Mentions: mentions}, http.StatusOK)
}
