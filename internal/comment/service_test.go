package comment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/evcraddock/threadline/internal/safety"
)

func TestCreateApprovesSafeContent(t *testing.T) {
	svc, _, _ := testService(t)

	c, err := svc.Create(context.Background(), CreateInput{
		TargetType: "post",
		TargetID:   "42",
		Content:    "  Hello world  ",
		AuthorID:   "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != Approved {
		t.Errorf("status = %q, want %q", c.Status, Approved)
	}
	if c.Content != "Hello world" {
		t.Errorf("content = %q, want trimmed", c.Content)
	}
	if c.LikesCount != 0 || c.DislikesCount != 0 {
		t.Errorf("counters = %d/%d, want 0/0", c.LikesCount, c.DislikesCount)
	}
}

func TestCreateHoldsUnsafeContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"spam", "great scam here"},
		{"profanity", "what the fuck"},
		{"empty", "   "},
		{"repetition", "aaaaaaaaaaa"},
		{"shortener", "see https://bit.ly/xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := testService(t)
			c, err := svc.Create(context.Background(), CreateInput{TargetType: "post", TargetID: "1", Content: tt.content})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if c.Status != Pending {
				t.Errorf("status = %q, want %q", c.Status, Pending)
			}
		})
	}
}

func TestCreateRequiresTarget(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.Create(context.Background(), CreateInput{TargetType: "post", Content: "hi"})
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
}

func TestCreateWithMissingParentIsTopLevel(t *testing.T) {
	svc, _, _ := testService(t)
	missing := int64(9999)

	c, err := svc.Create(context.Background(), CreateInput{
		TargetType: "post", TargetID: "1", Content: "orphan", ParentID: &missing,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ParentID != nil {
		t.Errorf("parent = %d, want nil", *c.ParentID)
	}
}

func TestCreateRecordsMentionsAndEvent(t *testing.T) {
	svc, repo, events := testService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{TargetType: "post", TargetID: "1", Content: "hi @ann and @bob, also @ann"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mentions, err := repo.ListMentions(ctx, c.ID)
	if err != nil {
		t.Fatalf("mentions: %v", err)
	}
	if len(mentions) != 2 || mentions[0].MentionedUserID != "ann" || mentions[1].MentionedUserID != "bob" {
		t.Errorf("unexpected mentions: %+v", mentions)
	}

	got := events.kinds()
	if len(got) != 1 || got[0] != EventCreated {
		t.Errorf("events = %v, want [%s]", got, EventCreated)
	}
}

func TestDepthAndCanReply(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	root := mustCreate(t, svc, "root", nil)
	child := mustCreate(t, svc, "child", &root.ID)
	grandchild := mustCreate(t, svc, "grandchild", &child.ID)
	great := mustCreate(t, svc, "great", &grandchild.ID)

	tests := []struct {
		name      string
		c         *Comment
		wantDepth int
		wantReply bool
	}{
		{"root", root, 0, true},
		{"child", child, 1, true},
		{"grandchild", grandchild, 2, true},
		{"great-grandchild", great, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, err := svc.Depth(ctx, tt.c)
			if err != nil {
				t.Fatalf("depth: %v", err)
			}
			if depth != tt.wantDepth {
				t.Errorf("depth = %d, want %d", depth, tt.wantDepth)
			}
			ok, err := svc.CanReply(ctx, tt.c, 0)
			if err != nil {
				t.Fatalf("can reply: %v", err)
			}
			if ok != tt.wantReply {
				t.Errorf("can reply = %v, want %v", ok, tt.wantReply)
			}
		})
	}

	ok, err := svc.CanReply(ctx, child, 1)
	if err != nil {
		t.Fatalf("can reply: %v", err)
	}
	if ok {
		t.Error("child should not accept replies with max depth 1")
	}
}

func TestUpdateUnchangedIsNoop(t *testing.T) {
	svc, _, events := testService(t)
	ctx := context.Background()
	c := mustCreate(t, svc, "Hello world", nil)

	got, err := svc.Update(ctx, c.ID, "  Hello world ")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.UpdatedAt != nil {
		t.Error("expected updated_at to stay unset")
	}
	if n := len(events.kinds()); n != 1 {
		t.Errorf("events = %d, want only the create event", n)
	}
}

func TestUpdateRemoderatesAndReplacesMentions(t *testing.T) {
	svc, repo, events := testService(t)
	ctx := context.Background()
	c := mustCreate(t, svc, "ping @ann", nil)

	got, err := svc.Update(ctx, c.ID, "this is spam, ping @bob")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != Pending {
		t.Errorf("status = %q, want %q", got.Status, Pending)
	}
	if got.UpdatedAt == nil {
		t.Error("expected updated_at to be set")
	}

	mentions, err := repo.ListMentions(ctx, c.ID)
	if err != nil {
		t.Fatalf("mentions: %v", err)
	}
	if len(mentions) != 1 || mentions[0].MentionedUserID != "bob" {
		t.Errorf("unexpected mentions: %+v", mentions)
	}

	kinds := events.kinds()
	if len(kinds) != 2 || kinds[1] != EventUpdated {
		t.Errorf("events = %v", kinds)
	}

	clean, err := svc.Update(ctx, c.ID, "all good now")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if clean.Status != Approved {
		t.Errorf("status = %q, want %q", clean.Status, Approved)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.Update(context.Background(), 9999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApproveAndReject(t *testing.T) {
	svc, _, events := testService(t)
	ctx := context.Background()
	c := mustCreate(t, svc, "this is spam", nil)
	if c.Status != Pending {
		t.Fatalf("status = %q, want %q", c.Status, Pending)
	}

	approved, err := svc.Approve(ctx, c.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != Approved {
		t.Errorf("status = %q, want %q", approved.Status, Approved)
	}

	rejected, err := svc.Reject(ctx, c.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != Rejected {
		t.Errorf("status = %q, want %q", rejected.Status, Rejected)
	}

	kinds := events.kinds()
	want := []EventKind{EventCreated, EventApproved}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, kinds[i], want[i])
		}
	}

	if _, err := svc.Approve(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSoftDelete(t *testing.T) {
	svc, _, events := testService(t)
	ctx := context.Background()
	root := mustCreate(t, svc, "root", nil)
	reply := mustCreate(t, svc, "reply", &root.ID)

	deleted, err := svc.Delete(ctx, root.ID, true)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Status != Deleted || deleted.DeletedAt == nil {
		t.Errorf("unexpected deleted comment: %+v", deleted)
	}

	got, err := svc.Get(ctx, root.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsDeleted() {
		t.Error("expected comment to report deleted")
	}
	if _, err := svc.Get(ctx, reply.ID); err != nil {
		t.Errorf("reply should survive a soft delete: %v", err)
	}

	kinds := events.kinds()
	if kinds[len(kinds)-1] != EventDeleted {
		t.Errorf("last event = %s, want %s", kinds[len(kinds)-1], EventDeleted)
	}
}

func TestHardDeleteRemovesThread(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	root := mustCreate(t, svc, "root", nil)
	reply := mustCreate(t, svc, "reply", &root.ID)

	if _, err := svc.Delete(ctx, root.ID, false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, root.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("root err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, reply.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("reply err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Delete(ctx, root.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestPinAndUnpin(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	c := mustCreate(t, svc, "pin me", nil)

	if _, err := svc.Pin(ctx, c.ID); err != nil {
		t.Fatalf("pin: %v", err)
	}
	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Pinned {
		t.Error("expected comment to be pinned")
	}

	if _, err := svc.Unpin(ctx, c.ID); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	got, err = svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Pinned {
		t.Error("expected comment to be unpinned")
	}
}

func TestAutoApprove(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	strict := safety.DefaultConfig()
	strict.SpamWords = []string{"crypto"}
	held := NewService(repo, safety.New(strict), nil, 0)

	c := mustCreate(t, held, "buy crypto", nil)
	mustCreate(t, held, "this is spam", nil)
	if c.Status != Pending {
		t.Fatalf("status = %q, want %q", c.Status, Pending)
	}

	// A relaxed analyzer now lets the first comment through but not the second.
	relaxed := NewService(repo, safety.New(safety.DefaultConfig()), nil, 0)
	approved, err := relaxed.AutoApprove(ctx, 10)
	if err != nil {
		t.Fatalf("auto approve: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != c.ID {
		t.Fatalf("approved = %+v, want comment %d", approved, c.ID)
	}

	pending, err := relaxed.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
}

func TestRepliesOldestFirst(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	root := mustCreate(t, svc, "root", nil)
	first := mustCreate(t, svc, "first", &root.ID)
	mustCreate(t, svc, "this is spam", &root.ID)
	second := mustCreate(t, svc, "second", &root.ID)

	replies, err := svc.Replies(ctx, root.ID)
	if err != nil {
		t.Fatalf("replies: %v", err)
	}
	if len(replies) != 2 || replies[0].ID != first.ID || replies[1].ID != second.ID {
		t.Errorf("unexpected replies: %+v", replies)
	}
}

func TestIsAuthor(t *testing.T) {
	registered := &Comment{AuthorID: "alice", AuthorIP: "10.0.0.1"}
	anonymous := &Comment{AuthorIP: "10.0.0.1"}

	tests := []struct {
		name string
		c    *Comment
		id   string
		ip   string
		want bool
	}{
		{"matching id", registered, "alice", "", true},
		{"other id", registered, "bob", "10.0.0.1", false},
		{"ip cannot claim registered comment", registered, "", "10.0.0.1", false},
		{"anonymous by ip", anonymous, "", "10.0.0.1", true},
		{"anonymous other ip", anonymous, "", "10.0.0.2", false},
		{"anonymous with id", anonymous, "alice", "10.0.0.1", false},
		{"no identity", anonymous, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthor(tt.c, tt.id, tt.ip); got != tt.want {
				t.Errorf("IsAuthor = %v, want %v", got, tt.want)
			}
		})
	}
}

// recordingSink keeps every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]EventKind, 0, len(s.events))
	for _, e := range s.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (s *recordingSink) last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func testService(t *testing.T) (*Service, *Repository, *recordingSink) {
	t.Helper()
	repo := testRepo(t)
	events := &recordingSink{}
	return NewService(repo, testAnalyzer(), events, 0), repo, events
}

func testAnalyzer() *safety.Analyzer {
	return safety.New(safety.DefaultConfig())
}

func mustCreate(t *testing.T, svc *Service, content string, parentID *int64) *Comment {
	t.Helper()
	c, err := svc.Create(context.Background(), CreateInput{
		TargetType: "post",
		TargetID:   "1",
		Content:    content,
		ParentID:   parentID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}
