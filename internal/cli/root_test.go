package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// testEnv points commands at a fresh database and config path.
type testEnv struct {
	t      *testing.T
	dir    string
	db     string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{
		"TL_DB", "TL_ADMIN", "TL_WEBHOOK_URL", "TL_WEBHOOK_SECRET",
		"TL_SMTP_HOST", "TL_SMTP_PORT", "TL_SMTP_USER", "TL_SMTP_PASS", "TL_SMTP_FROM",
		"TL_REDIS_ADDR", "TL_REDIS_PASSWORD", "TL_REDIS_CHANNEL", "TL_DEV_MODE", "TL_PORT", "TL_SERVER",
	} {
		t.Setenv(key, "")
	}
	return &testEnv{
		t:      t,
		dir:    dir,
		db:     filepath.Join(dir, "test.db"),
		config: filepath.Join(dir, "config.yaml"),
	}
}

// run executes args against the test database and fails on error.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.exec(args...)
	if err != nil {
		e.t.Fatalf("tl %v: %v\n%s", args, err, out)
	}
	return out
}

// exec executes args against the test database.
func (e *testEnv) exec(args ...string) (string, error) {
	return executeCommand(append(args, "--db", e.db, "--config", e.config)...)
}

// runJSON executes args with --format json and decodes the output into v.
func (e *testEnv) runJSON(v interface{}, args ...string) {
	e.t.Helper()
	out := e.run(append(args, "--format", "json")...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		e.t.Fatalf("decode output of %v: %v\n%s", args, err, out)
	}
}

func (e *testEnv) writeConfig(content string) {
	e.t.Helper()
	if err := os.WriteFile(e.config, []byte(content), 0o600); err != nil {
		e.t.Fatalf("write config: %v", err)
	}
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("expected --format flag to exist")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("expected --format default 'text', got %q", formatFlag.DefValue)
	}

	for _, name := range []string{"db", "config"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != Version+"\n" {
		t.Errorf("output = %q, want %q", out, Version+"\n")
	}
}

func TestArgsValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"add without text", []string{"add", "post", "1"}},
		{"add blank text", []string{"add", "post", "1", "   "}},
		{"show without id", []string{"show"}},
		{"show non-numeric id", []string{"show", "abc"}},
		{"approve without id", []string{"approve"}},
		{"edit without text", []string{"edit", "1"}},
		{"vote without type", []string{"vote", "1"}},
		{"vote bad type", []string{"vote", "1", "love", "--voter-id", "ann"}},
		{"vote without voter", []string{"vote", "1", "like"}},
		{"votes without voter", []string{"votes"}},
		{"list without target id", []string{"list", "post"}},
		{"list bad status", []string{"list", "post", "1", "--status", "hidden"}},
		{"list bad order", []string{"list", "post", "1", "--order", "random"}},
		{"history without filter", []string{"history"}},
		{"stats half target", []string{"stats", "--target-type", "post"}},
		{"mentions bad user", []string{"mentions", "not-a-user"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.exec(tt.args...); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}
