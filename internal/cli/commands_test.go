package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/pubsub"
)

// add posts a comment on post/1 and returns it.
func (e *testEnv) add(content string, flags ...string) *comment.Comment {
	e.t.Helper()
	var c comment.Comment
	e.runJSON(&c, append([]string{"add", "post", "1", content}, flags...)...)
	return &c
}

func id(c *comment.Comment) string {
	return fmt.Sprint(c.ID)
}

func TestAddAndShow(t *testing.T) {
	env := newTestEnv(t)

	c := env.add("Nice post @ann", "--author-id", "bob")
	if c.Status != comment.Approved || c.AuthorID != "bob" {
		t.Fatalf("unexpected comment: %+v", c)
	}

	reply := env.add("agreed", "--parent", id(c), "--author-name", "guest")
	if reply.ParentID == nil || *reply.ParentID != c.ID {
		t.Fatalf("reply parent = %v, want %d", reply.ParentID, c.ID)
	}

	var detail struct {
		Comment  comment.Comment    `json:"comment"`
		Depth    int                `json:"depth"`
		Mentions []*comment.Mention `json:"mentions"`
		Replies  []*comment.Comment `json:"replies"`
	}
	env.runJSON(&detail, "show", id(c))
	if detail.Comment.ID != c.ID || detail.Depth != 0 {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if len(detail.Mentions) != 1 || detail.Mentions[0].MentionedUserID != "ann" {
		t.Errorf("mentions = %+v", detail.Mentions)
	}
	if len(detail.Replies) != 1 || detail.Replies[0].ID != reply.ID {
		t.Errorf("replies = %+v", detail.Replies)
	}

	out := env.run("show", id(reply))
	for _, want := range []string{"Comment #", "Approved", "Reply to: #" + id(c), "guest", "Depth:    1"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestAddRespectsReplyDepth(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig("threads:\n  max_depth: 1\n")

	root := env.add("root")
	reply := env.add("reply", "--parent", id(root))

	if _, err := env.exec("add", "post", "1", "too deep", "--parent", id(reply)); err == nil {
		t.Fatal("expected depth error")
	}
}

func TestModerationFlow(t *testing.T) {
	env := newTestEnv(t)

	c := env.add("buy spam now")
	if c.Status != comment.Pending {
		t.Fatalf("status = %s, want pending", c.Status)
	}

	var pending []*comment.Comment
	env.runJSON(&pending, "pending")
	if len(pending) != 1 || pending[0].ID != c.ID {
		t.Fatalf("pending = %+v", pending)
	}

	var approved comment.Comment
	env.runJSON(&approved, "approve", id(c))
	if approved.Status != comment.Approved {
		t.Errorf("status = %s, want approved", approved.Status)
	}

	pending = nil
	env.runJSON(&pending, "pending")
	if len(pending) != 0 {
		t.Errorf("pending after approve = %d, want 0", len(pending))
	}

	var rejected comment.Comment
	env.runJSON(&rejected, "reject", id(c))
	if rejected.Status != comment.Rejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	var pinned comment.Comment
	env.runJSON(&pinned, "pin", id(c))
	if !pinned.Pinned {
		t.Error("expected comment to be pinned")
	}
	env.runJSON(&pinned, "unpin", id(c))
	if pinned.Pinned {
		t.Error("expected comment to be unpinned")
	}

	if _, err := env.exec("approve", "999"); err == nil {
		t.Error("expected error approving a missing comment")
	}
}

func TestAutoApproveAfterRelaxingFilter(t *testing.T) {
	env := newTestEnv(t)

	env.add("spam but harmless")
	env.add("damn profanity stays")

	var approved []*comment.Comment
	env.runJSON(&approved, "auto-approve")
	if len(approved) != 0 {
		t.Fatalf("approved %d with default filter, want 0", len(approved))
	}

	env.writeConfig("filter:\n  spam_filter: false\n")
	env.runJSON(&approved, "auto-approve")
	if len(approved) != 1 || approved[0].Content != "spam but harmless" {
		t.Errorf("approved = %+v, want the spam comment", approved)
	}

	out := env.run("auto-approve")
	if !strings.Contains(out, "Approved 0 comment(s).") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestEditAndDelete(t *testing.T) {
	env := newTestEnv(t)
	c := env.add("first draft @ann")

	var edited comment.Comment
	env.runJSON(&edited, "edit", id(c), "second draft @bob")
	if edited.Content != "second draft @bob" || edited.UpdatedAt == nil {
		t.Errorf("unexpected edit: %+v", edited)
	}

	var detail struct {
		Mentions []*comment.Mention `json:"mentions"`
	}
	env.runJSON(&detail, "show", id(c))
	if len(detail.Mentions) != 1 || detail.Mentions[0].MentionedUserID != "bob" {
		t.Errorf("mentions after edit = %+v, want bob only", detail.Mentions)
	}

	env.run("reject", id(c))
	if _, err := env.exec("edit", id(c), "third draft"); err == nil {
		t.Error("expected rejected comment to refuse edits")
	}

	out := env.run("delete", id(c))
	if !strings.Contains(out, "Deleted comment #"+id(c)) {
		t.Errorf("unexpected output: %s", out)
	}
	var soft comment.Comment
	env.runJSON(&soft, "show", id(c))

	env.run("delete", id(c), "--hard")
	if _, err := env.exec("show", id(c)); err == nil {
		t.Error("expected hard-deleted comment to be gone")
	}
}

func TestListCommand(t *testing.T) {
	env := newTestEnv(t)
	first := env.add("first")
	env.add("second", "--parent", id(first))
	env.add("spam third")

	out := env.run("list", "post", "1")
	if !strings.Contains(out, "2 of 2 approved comment(s)") {
		t.Errorf("unexpected list footer:\n%s", out)
	}

	var all []*comment.Comment
	env.runJSON(&all, "list", "post", "1", "--status", "all", "--top-level", "--asc")
	if len(all) != 2 || all[0].ID != first.ID {
		t.Errorf("top-level all = %+v", all)
	}

	var found []*comment.Comment
	env.runJSON(&found, "list", "post", "--search", "sec")
	if len(found) != 1 || found[0].Content != "second" {
		t.Errorf("search = %+v", found)
	}

	out = env.run("list", "post", "2")
	if !strings.Contains(out, "No comments found.") {
		t.Errorf("expected empty list message:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)
	env.add("mine", "--author-id", "bob")
	env.add("also mine, held as spam", "--author-id", "bob")
	env.add("from a guest", "--author-ip", "10.0.0.7")

	var byAuthor []*comment.Comment
	env.runJSON(&byAuthor, "history", "--author-id", "bob")
	if len(byAuthor) != 2 {
		t.Errorf("by author = %d, want 2", len(byAuthor))
	}

	var byIP []*comment.Comment
	env.runJSON(&byIP, "history", "--ip", "10.0.0.7")
	if len(byIP) != 1 || byIP[0].Content != "from a guest" {
		t.Errorf("by ip = %+v", byIP)
	}
}

func TestVoteCommands(t *testing.T) {
	env := newTestEnv(t)
	c := env.add("vote here")

	var resp struct {
		Comment comment.Comment    `json:"comment"`
		Action  comment.VoteAction `json:"action"`
	}
	env.runJSON(&resp, "vote", id(c), "like", "--voter-id", "ann")
	if resp.Action != comment.VoteCreated || resp.Comment.LikesCount != 1 {
		t.Errorf("first vote = %+v", resp)
	}
	env.runJSON(&resp, "vote", id(c), "like", "--voter-ip", "10.0.0.1")
	if resp.Comment.LikesCount != 2 {
		t.Errorf("likes = %d, want 2", resp.Comment.LikesCount)
	}
	env.runJSON(&resp, "vote", id(c), "like", "--voter-id", "ann")
	if resp.Action != comment.VoteRemoved || resp.Comment.LikesCount != 1 {
		t.Errorf("toggle off = %+v", resp)
	}

	out := env.run("vote", id(c), "dislike", "--voter-id", "ann")
	if !strings.Contains(out, "Vote created") || !strings.Contains(out, "-1") {
		t.Errorf("unexpected output: %s", out)
	}

	var votes []*comment.Vote
	env.runJSON(&votes, "votes", "--voter-id", "ann")
	if len(votes) != 1 || votes[0].Type != comment.Dislike {
		t.Errorf("votes = %+v", votes)
	}
	votes = nil
	env.runJSON(&votes, "votes", "--voter-id", "ann", "--type", "like")
	if len(votes) != 0 {
		t.Errorf("like votes = %d, want 0", len(votes))
	}

	var refreshed comment.Comment
	env.runJSON(&refreshed, "refresh-votes", id(c))
	if refreshed.LikesCount != 1 || refreshed.DislikesCount != 1 {
		t.Errorf("refreshed = +%d/-%d, want +1/-1", refreshed.LikesCount, refreshed.DislikesCount)
	}

	held := env.add("spam vote bait")
	if _, err := env.exec("vote", id(held), "like", "--voter-id", "ann"); err == nil {
		t.Error("expected pending comment to refuse votes")
	}
}

func TestMentionsAndNotify(t *testing.T) {
	env := newTestEnv(t)
	env.add("hello @ann")
	held := env.add("spam for @ann")

	var all []*comment.Mention
	env.runJSON(&all, "mentions", "@ann")
	if len(all) != 2 {
		t.Fatalf("mentions = %d, want 2", len(all))
	}

	// The approved comment was delivered on creation; the held one waits.
	var queued []*comment.Mention
	env.runJSON(&queued, "mentions", "ann", "--pending")
	if len(queued) != 1 || queued[0].CommentID != held.ID {
		t.Fatalf("queued = %+v, want the held comment's mention", queued)
	}

	var sent map[string]int
	env.runJSON(&sent, "notify")
	if sent["sent"] != 0 {
		t.Errorf("sent = %d before approval, want 0", sent["sent"])
	}

	env.run("approve", id(held))
	queued = nil
	env.runJSON(&queued, "mentions", "ann", "--pending")
	if len(queued) != 0 {
		t.Errorf("queued after approval = %d, want 0", len(queued))
	}

	out := env.run("mentions", "ann")
	if !strings.Contains(out, "@ann: 0 awaiting notification") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	env := newTestEnv(t)

	var res struct {
		Report struct {
			IsSafe bool `json:"is_safe"`
		} `json:"report"`
		Reason   string `json:"reason"`
		Filtered string `json:"filtered_content"`
		Mentions []struct {
			UserID string `json:"user_id"`
		} `json:"mentions"`
	}
	env.runJSON(&res, "analyze", "this is spam content for @ann")
	if res.Report.IsSafe || res.Reason == "" {
		t.Errorf("expected unsafe verdict with reason: %+v", res)
	}
	if len(res.Mentions) != 1 || res.Mentions[0].UserID != "ann" {
		t.Errorf("mentions = %+v", res.Mentions)
	}

	out := env.run("analyze", "<b>hello</b>", "world")
	for _, want := range []string{"Verdict:     safe", "Filtered:    hello world"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	c := env.add("good @ann")
	env.add("spam")
	env.run("vote", id(c), "like", "--voter-id", "bob")

	var report struct {
		Total         int64   `json:"total_comments"`
		Approved      int64   `json:"approved_comments"`
		Pending       int64   `json:"pending_comments"`
		TotalLikes    int64   `json:"total_likes"`
		ApprovalRate  float64 `json:"approval_rate"`
		Mentions      comment.MentionStats
		Popular       []*comment.Comment `json:"popular"`
		Recent        []*comment.Comment `json:"recent"`
		RejectionRate float64            `json:"rejection_rate"`
	}
	env.runJSON(&report, "stats", "--target-type", "post", "--target-id", "1")
	if report.Total != 2 || report.Approved != 1 || report.Pending != 1 || report.TotalLikes != 1 {
		t.Errorf("stats = %+v", report)
	}
	if report.ApprovalRate != 50 || report.RejectionRate != 0 {
		t.Errorf("rates = %v / %v", report.ApprovalRate, report.RejectionRate)
	}
	if report.Mentions.Total != 1 || report.Mentions.Notified != 1 {
		t.Errorf("mention stats = %+v", report.Mentions)
	}
	if len(report.Popular) != 1 || len(report.Recent) != 2 {
		t.Errorf("popular = %d, recent = %d", len(report.Popular), len(report.Recent))
	}

	out := env.run("stats", "--recent", "0")
	for _, want := range []string{"Statistics for all targets", "Approved:  1 (50.0%)", "Votes:     +1 / -0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEventsRequiresRedis(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.exec("events"); err == nil {
		t.Fatal("expected error without redis config")
	}
}

func TestEventsTail(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("TL_REDIS_ADDR", mr.Addr())

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true})
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("close client: %v", err)
		}
	})

	payload, err := json.Marshal(comment.NewEvent(comment.EventApproved, &comment.Comment{ID: 7, TargetType: "post", TargetID: "1", Status: comment.Approved}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Publish until the command has subscribed and received one event.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				client.Publish(ctx, pubsub.DefaultChannel, payload)
			}
		}
	}()

	out := env.run("events", "--count", "1")
	cancel()

	if !strings.Contains(out, "comment.approved") || !strings.Contains(out, "#7 post/1 approved") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestCommandsPublishToRedis(t *testing.T) {
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("TL_REDIS_ADDR", mr.Addr())
	t.Setenv("TL_REDIS_CHANNEL", "test-events")

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DisableIdentity: true})
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("close client: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := pubsub.Subscribe(ctx, client, "test-events")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	c := env.add("published")

	e, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if e.Kind != comment.EventCreated || e.Comment.ID != c.ID {
		t.Errorf("event = %+v, want created #%d", e, c.ID)
	}
}

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		status comment.Status
		want   string
	}{
		{comment.Pending, "Pending review"},
		{comment.Approved, "Approved"},
		{comment.Rejected, "Rejected"},
		{comment.Deleted, "Deleted"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := statusBadge(&bytes.Buffer{}, tt.status)
			if !strings.Contains(got, tt.want) {
				t.Errorf("statusBadge(%s) = %q, want it to contain %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxLen   int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 8, "hello..."},
		{"multibyte", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.maxLen); got != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.expected)
			}
		})
	}
}
