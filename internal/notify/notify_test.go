package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := n.Notify(context.Background(), KindMention, "ann", Message{Subject: "bob mentioned you", CommentID: 9})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if entry["kind"] != "mention" || entry["recipient"] != "ann" || entry["comment_id"] != float64(9) {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestFanout(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	failing := &recordingNotifier{fail: map[string]bool{"ann": true}}

	err := Fanout{a, b}.Notify(context.Background(), KindReply, "ann", Message{})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if a.count(KindReply) != 1 || b.count(KindReply) != 1 {
		t.Errorf("expected both notifiers to be called")
	}

	err = Fanout{a, failing}.Notify(context.Background(), KindReply, "ann", Message{})
	if err == nil {
		t.Fatal("expected error from failing notifier")
	}
	if a.count(KindReply) != 2 {
		t.Error("healthy notifier should still be called")
	}

	if err := (Fanout{}).Notify(context.Background(), KindReply, "ann", Message{}); err != nil {
		t.Errorf("empty fanout: %v", err)
	}
}

func TestSMTPConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
		want bool
	}{
		{"fully configured", SMTPConfig{Host: "smtp.example.com", Port: "587", From: "test@example.com"}, true},
		{"missing host", SMTPConfig{From: "test@example.com"}, false},
		{"missing from", SMTPConfig{Host: "smtp.example.com"}, false},
		{"empty", SMTPConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendUnconfigured(t *testing.T) {
	if err := Send(SMTPConfig{}, []string{"a@example.com"}, "s", "b"); err == nil {
		t.Fatal("expected error for unconfigured SMTP")
	}
}

func TestFormatMessage(t *testing.T) {
	msg := formatMessage("tl@example.com", []string{"a@example.com", "b@example.com"}, "Hello", "body text")

	for _, want := range []string{
		"From: tl@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Hello\r\n",
		"\r\n\r\nbody text",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSMTPNotifierResolvesAddresses(t *testing.T) {
	type call struct {
		to      []string
		subject string
	}
	var calls []call

	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: "587", From: "tl@example.com"},
		map[string]string{"ann": "ann@example.com"})
	n.send = func(_ SMTPConfig, to []string, subject, _ string) error {
		calls = append(calls, call{to: to, subject: subject})
		return nil
	}

	ctx := context.Background()
	for _, recipient := range []string{"ann", "admin@example.com", "nobody"} {
		if err := n.Notify(ctx, KindMention, recipient, Message{Subject: "hi"}); err != nil {
			t.Fatalf("notify %s: %v", recipient, err)
		}
	}

	if len(calls) != 2 {
		t.Fatalf("got %d sends, want 2", len(calls))
	}
	if calls[0].to[0] != "ann@example.com" || calls[1].to[0] != "admin@example.com" {
		t.Errorf("unexpected recipients: %+v", calls)
	}

	n.send = func(SMTPConfig, []string, string, string) error { return errors.New("connection refused") }
	if err := n.Notify(ctx, KindMention, "ann", Message{}); err == nil {
		t.Error("expected send error to propagate")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "s3cret")
	err := n.Notify(context.Background(), KindReply, "gina", Message{Subject: "hank replied", CommentID: 4})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Kind != KindReply || got.Recipient != "gina" || got.Message.CommentID != 4 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.SentAt.IsZero() {
		t.Error("expected sent_at to be set")
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			t.Errorf("drain: %v", err)
		}
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, "").Notify(context.Background(), KindMention, "ann", Message{})
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "nope") {
		t.Errorf("error = %v", err)
	}
}
