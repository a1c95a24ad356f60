package web

import (
	"net/http"

	"github.com/evcraddock/threadline/internal/comment"
)

type voteResponse struct {
	Comment *comment.Comment   `json:"comment"`
	Action  comment.VoteAction `json:"action"`
	Score   int64              `json:"score"`
}

type voteStatsResponse struct {
	CommentID int64             `json:"comment_id"`
	Stats     comment.VoteStats `json:"stats"`
	Vote      comment.VoteType  `json:"vote,omitempty"`
}

// voterFrom identifies the caller from an explicit voter ID, falling back to
// the client address.
func voterFrom(r *http.Request, voterID string) comment.Voter {
	return comment.Voter{ID: voterID, IP: clientIP(r)}
}

// apiVote toggles the caller's vote on a comment.
func (s *Server) apiVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		VoteType comment.VoteType `json:"vote_type"`
		VoterID  string           `json:"voter_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.VoteType.IsValid() {
		apiError(w, "vote_type must be like or dislike", http.StatusBadRequest)
		return
	}

	c, err := s.comments.Get(r.Context(), id)
	if err != nil {
		apiServiceError(w, "loading comment", err)
		return
	}

	voter := voterFrom(r, req.VoterID)
	if !comment.CanVote(c, voter) {
		apiError(w, "comment is not open for voting", http.StatusForbidden)
		return
	}

	c, action, err := s.votes.Vote(r.Context(), id, req.VoteType, voter)
	if err != nil {
		apiServiceError(w, "voting", err)
		return
	}
	apiJSON(w, voteResponse{Comment: c, Action: action, Score: c.Score()}, http.StatusOK)
}

// apiRemoveVote deletes the caller's vote. The voter ID comes from the
// voter_id query parameter.
func (s *Server) apiRemoveVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := s.votes.RemoveVote(r.Context(), id, voterFrom(r, r.URL.Query().Get("voter_id")))
	if err != nil {
		apiServiceError(w, "removing vote", err)
		return
	}
	apiJSON(w, map[string]bool{"removed": removed}, http.StatusOK)
}

// apiVoteStats tallies a comment's votes and reports the caller's own vote.
func (s *Server) apiVoteStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := s.comments.Get(r.Context(), id); err != nil {
		apiServiceError(w, "loading comment", err)
		return
	}

	stats, err := s.votes.Statistics(r.Context(), id)
	if err != nil {
		apiServiceError(w, "counting votes", err)
		return
	}

	resp := voteStatsResponse{CommentID: id, Stats: stats}
	t, voted, err := s.votes.VoteType(r.Context(), id, voterFrom(r, r.URL.Query().Get("voter_id")))
	if err != nil {
		apiServiceError(w, "loading vote", err)
		return
	}
	if voted {
		resp.Vote = t
	}
	apiJSON(w, resp, http.StatusOK)
}
