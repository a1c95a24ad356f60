package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/evcraddock/threadline/internal/comment"
)

// commentDetail is a comment with its derived thread and mention data.
type commentDetail struct {
	*comment.Comment
	Score    int64              `json:"score"`
	Depth    int                `json:"depth"`
	CanReply bool               `json:"can_reply"`
	Mentions []*comment.Mention `json:"mentions"`
}

// apiListComments lists a target's comments, or searches content when q is set.
func (s *Server) apiListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	targetType := q.Get("target_type")
	targetID := q.Get("target_id")
	keyword := strings.TrimSpace(q.Get("q"))

	if keyword == "" && (targetType == "" || targetID == "") {
		apiError(w, "target_type and target_id are required", http.StatusBadRequest)
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var comments []*comment.Comment
	if keyword != "" {
		comments, err = s.comments.Search(r.Context(), keyword, targetType, opts)
	} else {
		comments, err = s.comments.List(r.Context(), targetType, targetID, opts)
	}
	if err != nil {
		apiServiceError(w, "listing comments", err)
		return
	}
	if comments == nil {
		comments = []*comment.Comment{}
	}
	apiJSON(w, comments, http.StatusOK)
}

func listOptions(r *http.Request) (comment.ListOptions, error) {
	q := r.URL.Query()
	var opts comment.ListOptions

	switch status := q.Get("status"); status {
	case "":
	case "all":
		opts.AnyStatus = true
	default:
		if !comment.Status(status).IsValid() {
			return opts, errors.New("status must be one of pending, approved, rejected, deleted, all")
		}
		opts.Status = comment.Status(status)
	}

	parentOnly, err := queryBool(r, "parent_only")
	if err != nil {
		return opts, err
	}
	if parentOnly != nil {
		opts.ParentOnly = *parentOnly
	}

	if orderBy := q.Get("order_by"); orderBy != "" {
		if !comment.OrderBy(orderBy).IsValid() {
			return opts, errors.New("order_by must be one of created_at, score, likes")
		}
		opts.OrderBy = comment.OrderBy(orderBy)
	}

	switch q.Get("order") {
	case "", "desc":
	case "asc":
		opts.Ascending = true
	default:
		return opts, errors.New("order must be asc or desc")
	}

	if opts.Limit, err = queryInt(r, "limit", 0); err != nil {
		return opts, err
	}
	if opts.Offset, err = queryInt(r, "offset", 0); err != nil {
		return opts, err
	}
	return opts, nil
}

// apiCreateComment posts a comment. Safe content is approved immediately and
// anything else waits in the moderation queue.
func (s *Server) apiCreateComment(w http.ResponseWriter, r *http.Request) {
	var in comment.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.AuthorIP == "" {
		in.AuthorIP = clientIP(r)
	}
	if in.UserAgent == "" {
		in.UserAgent = r.UserAgent()
	}

	if in.ParentID != nil {
		parent, err := s.comments.Get(r.Context(), *in.ParentID)
		if err == nil {
			ok, err := s.comments.CanReply(r.Context(), parent, s.opts.MaxDepth)
			if err != nil {
				apiServiceError(w, "checking reply depth", err)
				return
			}
			if !ok {
				apiError(w, "maximum reply depth reached", http.StatusUnprocessableEntity)
				return
			}
		}
	}

	c, err := s.comments.Create(r.Context(), in)
	if err != nil {
		apiServiceError(w, "creating comment", err)
		return
	}
	apiJSON(w, c, http.StatusCreated)
}

// apiGetComment returns a comment with its depth and mentions.
func (s *Server) apiGetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := s.comments.Get(r.Context(), id)
	if err != nil {
		apiServiceError(w, "loading comment", err)
		return
	}

	depth, err := s.comments.Depth(r.Context(), c)
	if err != nil {
		apiServiceError(w, "loading depth", err)
		return
	}

	mentions, err := s.comments.Mentions(r.Context(), id)
	if err != nil {
		apiServiceError(w, "loading mentions", err)
		return
	}
	if mentions == nil {
		mentions = []*comment.Mention{}
	}

	apiJSON(w, commentDetail{
		Comment:  c,
		Score:    c.Score(),
		Depth:    depth,
		CanReply: depth < s.opts.MaxDepth,
		Mentions: mentions,
	}, http.StatusOK)
}

// apiUpdateComment edits a comment's content. Only the author may edit, and
// only while the comment is pending or approved.
func (s *Server) apiUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Content  string `json:"content"`
		AuthorID string `json:"author_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.comments.Get(r.Context(), id)
	if err != nil {
		apiServiceError(w, "loading comment", err)
		return
	}
	if !c.Status.CanBeModified() {
		apiError(w, "comment can no longer be edited", http.StatusConflict)
		return
	}
	if !comment.IsAuthor(c, req.AuthorID, clientIP(r)) {
		apiError(w, "only the author can edit this comment", http.StatusForbidden)
		return
	}

	c, err = s.comments.Update(r.Context(), id, req.Content)
	if err != nil {
		apiServiceError(w, "updating comment", err)
		return
	}
	apiJSON(w, c, http.StatusOK)
}

// apiDeleteComment soft deletes a comment, or removes it with ?hard=true.
func (s *Server) apiDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	hard, err := queryBool(r, "hard")
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := s.comments.Delete(r.Context(), id, hard == nil || !*hard)
	if err != nil {
		apiServiceError(w, "deleting comment", err)
		return
	}
	apiJSON(w, c, http.StatusOK)
}

// apiListReplies returns a comment's approved replies, oldest first.
func (s *Server) apiListReplies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := s.comments.Get(r.Context(), id); err != nil {
		apiServiceError(w, "loading comment", err)
		return
	}

	replies, err := s.comments.Replies(r.Context(), id)
	if err != nil {
		apiServiceError(w, "loading replies", err)
		return
	}
	if replies == nil {
		replies = []*comment.Comment{}
	}
	apiJSON(w, replies, http.StatusOK)
}

// apiModerate adapts a single-comment moderation action into a handler.
func (s *Server) apiModerate(action func(context.Context, int64) (*comment.Comment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		c, err := action(r.Context(), id)
		if err != nil {
			apiServiceError(w, "moderating comment", err)
			return
		}
		apiJSON(w, c, http.StatusOK)
	}
}
