package cli

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evcraddock/threadline/internal/client"
	"github.com/evcraddock/threadline/internal/comment"
	"github.com/evcraddock/threadline/internal/db"
	"github.com/evcraddock/threadline/internal/safety"
	"github.com/evcraddock/threadline/internal/web"
)

// startServer serves the API over the test environment's database.
func (e *testEnv) startServer() string {
	e.t.Helper()
	d, err := db.Open(e.db)
	if err != nil {
		e.t.Fatalf("open db: %v", err)
	}
	e.t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			e.t.Errorf("close db: %v", cerr)
		}
	})

	repo := comment.NewRepository(d)
	analyzer := safety.New(safety.DefaultConfig())
	srv := httptest.NewServer(web.NewServer(
		comment.NewService(repo, analyzer, nil, 0),
		comment.NewVoteService(repo, nil),
		analyzer,
		web.Options{},
	))
	e.t.Cleanup(srv.Close)
	return srv.URL
}

func TestRemoteCommands(t *testing.T) {
	env := newTestEnv(t)
	url := env.startServer()

	var held comment.Comment
	env.runJSON(&held, "add", "post", "1", "buy spam now", "--author-id", "bob", "--server", url+"/")
	if held.Status != comment.Pending {
		t.Fatalf("status = %s, want pending", held.Status)
	}
	if held.AuthorIP != "127.0.0.1" {
		t.Errorf("author ip = %q, want the server to record the caller", held.AuthorIP)
	}

	if _, err := env.exec("vote", id(&held), "like", "--voter-id", "ann", "--server", url); err == nil {
		t.Fatal("expected vote on a pending comment to fail")
	}

	var approved comment.Comment
	env.runJSON(&approved, "approve", id(&held), "--server", url)
	if approved.Status != comment.Approved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}

	out := env.run("vote", id(&held), "like", "--server", url)
	if !strings.Contains(out, "Vote created") || !strings.Contains(out, "score 1") {
		t.Errorf("vote output = %q", out)
	}

	// The local database sees the server's writes.
	var local struct {
		Comment comment.Comment `json:"comment"`
	}
	env.runJSON(&local, "show", id(&held))
	if local.Comment.Status != comment.Approved || local.Comment.LikesCount != 1 {
		t.Errorf("local view = %+v", local.Comment)
	}
}

func TestRemoteAnalyze(t *testing.T) {
	env := newTestEnv(t)
	url := env.startServer()
	t.Setenv("TL_SERVER", url)

	var res client.Analysis
	env.runJSON(&res, "analyze", "hello", "@ann")
	if !res.Report.IsSafe || len(res.Mentions) != 1 {
		t.Errorf("analysis = %+v", res)
	}
}

func TestRemoteErrors(t *testing.T) {
	env := newTestEnv(t)
	url := env.startServer()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing comment", []string{"approve", "999"}, "comment not found"},
		{"voter ip", []string{"vote", "1", "like", "--voter-ip", "10.0.0.1"}, "--voter-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.exec(append(tt.args, "--server", url)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
