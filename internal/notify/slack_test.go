package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedPost struct {
	payload webhookPayload
}

func newCapturingServer(t *testing.T, got *[]capturedPost) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var p webhookPayload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		*got = append(*got, capturedPost{payload: p})
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSlack_SendAttachesNodeContext(t *testing.T) {
	var posts []capturedPost
	srv := newCapturingServer(t, &posts)
	defer srv.Close()

	s := NewSlack(SlackOptions{
		WebhookURL: srv.URL,
		Role:       RoleValidator,
		Hotkey:     "5CATQqY6rA26Kkvm2abMTRtxnwyxigHZKxNJq86bUcpYsn35",
	}, nil)

	s.Send("weight set ok", LevelSuccess)

	if len(posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(posts))
	}
	att := posts[0].payload.Attachments
	if len(att) != 1 {
		t.Fatalf("attachments = %d, want 1", len(att))
	}
	if att[0].Color != "#00ff00" {
		t.Errorf("color = %q, want success green", att[0].Color)
	}
	if len(att[0].Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(att[0].Fields))
	}
	if att[0].Fields[0].Value != "weight set ok" {
		t.Errorf("message field = %q", att[0].Fields[0].Value)
	}
	if want := "...UcpYsn35"; !containsSuffix(att[0].Fields[1].Value, want) {
		t.Errorf("hotkey context %q does not end in %q", att[0].Fields[1].Value, want)
	}
}

func containsSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func TestSlack_ErrorLevelsRouteToErrorWebhook(t *testing.T) {
	var mainPosts, errorPosts []capturedPost
	mainSrv := newCapturingServer(t, &mainPosts)
	defer mainSrv.Close()
	errSrv := newCapturingServer(t, &errorPosts)
	defer errSrv.Close()

	s := NewSlack(SlackOptions{
		WebhookURL:      mainSrv.URL,
		ErrorWebhookURL: errSrv.URL,
		Role:            RoleMiner,
		Hotkey:          "5HotAddr",
	}, nil)

	s.Send("fine", LevelInfo)
	s.Send("done", LevelSuccess)
	s.Send("careful", LevelWarning)
	s.Send("broken", LevelError)

	if len(mainPosts) != 2 {
		t.Errorf("main channel posts = %d, want 2", len(mainPosts))
	}
	if len(errorPosts) != 2 {
		t.Errorf("error channel posts = %d, want 2", len(errorPosts))
	}
}

func TestSlack_ErrorWebhookFallsBackToMain(t *testing.T) {
	var posts []capturedPost
	srv := newCapturingServer(t, &posts)
	defer srv.Close()

	s := NewSlack(SlackOptions{WebhookURL: srv.URL, Role: RoleMiner, Hotkey: "5HotAddr"}, nil)
	s.Send("broken", LevelError)

	if len(posts) != 1 {
		t.Errorf("posts = %d, want error message on main webhook", len(posts))
	}
}

func TestSlack_DeliveryFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSlack(SlackOptions{WebhookURL: srv.URL, Role: RoleMiner, Hotkey: "5HotAddr"}, nil)
	s.Send("anything", LevelInfo) // must not panic or block
}

func TestNewSlack_EmptyURLIsNil(t *testing.T) {
	if s := NewSlack(SlackOptions{}, nil); s != nil {
		t.Error("expected nil notifier for empty webhook URL")
	}
}
