package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
	"github.com/ikmalsaid/mindful-agents/internal/history"
	"github.com/ikmalsaid/mindful-agents/internal/preset"
	"github.com/ikmalsaid/mindful-agents/internal/session"
)

var taskIDPattern = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}$`)

// completionPayload mirrors the "data" form field the engine submits.
type completionPayload struct {
	ID       string         `json:"id"`
	Messages []chat.Message `json:"messages"`
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
}

func newCompletionServer(t *testing.T, answer []string, captured *completionPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("model_version"); got != "1" {
			t.Errorf("model_version = %q, want 1", got)
		}
		if captured != nil {
			if err := json.Unmarshal([]byte(r.FormValue("data")), captured); err != nil {
				t.Errorf("parsing data field: %v", err)
			}
		}

		for _, fragment := range answer {
			chunk, _ := json.Marshal(map[string]string{"content": fragment})
			w.Write([]byte("data: "))
			w.Write(chunk)
			w.Write([]byte("\n"))
		}
	}))
}

func newTestEngine(t *testing.T, creds preset.Credentials) (*session.Engine, string) {
	t.Helper()
	root := t.TempDir()
	engine := session.NewEngine(session.Options{
		Model:        "vgpt-a1-1",
		SystemPrompt: "You are helpful.",
		Credentials:  creds,
		Timeout:      5 * time.Second,
		Store:        history.NewStore(root, history.FormatJSON, nil),
	})
	return engine, root
}

func TestCompleteFreshHistory(t *testing.T) {
	var payload completionPayload
	server := newCompletionServer(t, []string{"Hello", " there"}, &payload)
	defer server.Close()

	engine, root := newTestEngine(t, preset.Credentials{CompletionURL: server.URL})

	answer, hist, err := engine.Complete(context.Background(), "hi", nil, nil)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if answer != "Hello there" {
		t.Fatalf("unexpected answer %q", answer)
	}

	if len(hist) != 3 {
		t.Fatalf("got %d messages, want system+user+assistant", len(hist))
	}
	if hist[0].Role != chat.RoleSystem {
		t.Fatalf("first message role = %q, want system", hist[0].Role)
	}
	if !taskIDPattern.MatchString(hist[0].ID) {
		t.Fatalf("minted task id %q malformed", hist[0].ID)
	}
	for _, msg := range hist {
		if msg.ID != hist[0].ID {
			t.Fatalf("message id %q differs from conversation id %q", msg.ID, hist[0].ID)
		}
	}
	if hist[2].Role != chat.RoleAssistant || hist[2].Content.Text != "Hello there" {
		t.Fatalf("assistant message mismatch: %+v", hist[2])
	}

	// Request payload carried the full transcript minus the assistant turn.
	if payload.ID != hist[0].ID || payload.Stream || len(payload.Messages) != 2 {
		t.Fatalf("unexpected request payload: %+v", payload)
	}

	// Persisted under the id's date partition.
	date := hist[0].ID[:4] + "-" + hist[0].ID[4:6] + "-" + hist[0].ID[6:8]
	if _, err := os.Stat(filepath.Join(root, date, hist[0].ID+".json")); err != nil {
		t.Fatalf("history not persisted: %v", err)
	}
}

func TestCompleteReusesHistoryIdentity(t *testing.T) {
	server := newCompletionServer(t, []string{"again"}, nil)
	defer server.Close()

	engine, _ := newTestEngine(t, preset.Credentials{CompletionURL: server.URL})

	prior := []chat.Message{{
		ID:      "20250117_153042_a1b2c3d4",
		Role:    chat.RoleSystem,
		Content: chat.Text("You are a pirate."),
		Model:   "vgpt-a1-1",
	}}

	_, hist, err := engine.Complete(context.Background(), "more", nil, prior)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if hist[0].ID != "20250117_153042_a1b2c3d4" {
		t.Fatalf("task id not reused: %q", hist[0].ID)
	}
	if hist[0].Content.Text != "You are a pirate." {
		t.Fatalf("system prompt not preserved: %q", hist[0].Content.Text)
	}
	if hist[1].ID != hist[0].ID {
		t.Fatalf("appended message carries id %q, want %q", hist[1].ID, hist[0].ID)
	}
}

func TestCompleteWithImages(t *testing.T) {
	uploads := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file.jpg": "https://cdn.example.com/img1"}`))
	}))
	defer uploads.Close()

	server := newCompletionServer(t, []string{"a cat"}, nil)
	defer server.Close()

	engine, _ := newTestEngine(t, preset.Credentials{
		CompletionURL: server.URL,
		UploadURL:     uploads.URL,
	})

	img := filepath.Join(t.TempDir(), "cat.jpg")
	if err := os.WriteFile(img, []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("writing image: %v", err)
	}

	_, hist, err := engine.Complete(context.Background(), "what is this", []string{img}, nil)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	user := hist[1]
	if !user.Content.IsMulti() || len(user.Content.Parts) != 2 {
		t.Fatalf("user content parts = %+v", user.Content)
	}
	if user.Content.Parts[0].Type != chat.PartText || user.Content.Parts[0].Text != "what is this" {
		t.Fatalf("text part mismatch: %+v", user.Content.Parts[0])
	}
	if user.Content.Parts[1].Type != chat.PartImageURL || user.Content.Parts[1].FileURL.URL != "https://cdn.example.com/img1" {
		t.Fatalf("image part mismatch: %+v", user.Content.Parts[1])
	}
}

func TestCompleteTransportFailureKeepsHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, preset.Credentials{CompletionURL: server.URL})

	answer, hist, err := engine.Complete(context.Background(), "hi", nil, nil)
	if !errors.Is(err, session.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if answer != "" {
		t.Fatalf("expected empty answer on failure, got %q", answer)
	}
	// History as it stood: system and user turns, no assistant.
	if len(hist) != 2 || hist[0].Role != chat.RoleSystem || hist[1].Role != chat.RoleUser {
		t.Fatalf("unexpected history after failure: %+v", hist)
	}
}

func TestCompleteUploadFailureKeepsPriorHistory(t *testing.T) {
	server := newCompletionServer(t, []string{"unused"}, nil)
	defer server.Close()

	engine, _ := newTestEngine(t, preset.Credentials{
		CompletionURL: server.URL,
		UploadURL:     "http://127.0.0.1:0",
	})

	_, hist, err := engine.Complete(context.Background(), "hi", []string{filepath.Join(t.TempDir(), "missing.jpg")}, nil)
	if err == nil {
		t.Fatal("expected upload failure")
	}
	// The user turn is not appended when building its content failed.
	if len(hist) != 1 || hist[0].Role != chat.RoleSystem {
		t.Fatalf("unexpected history after upload failure: %+v", hist)
	}
}

func TestCompleteSecondTurnMergesOnDisk(t *testing.T) {
	server := newCompletionServer(t, []string{"answer"}, nil)
	defer server.Close()

	engine, root := newTestEngine(t, preset.Credentials{CompletionURL: server.URL})
	ctx := context.Background()

	_, hist, err := engine.Complete(ctx, "first", nil, nil)
	if err != nil {
		t.Fatalf("first turn err: %v", err)
	}
	_, hist, err = engine.Complete(ctx, "second", nil, hist)
	if err != nil {
		t.Fatalf("second turn err: %v", err)
	}
	if len(hist) != 5 {
		t.Fatalf("got %d messages after two turns, want 5", len(hist))
	}

	date := hist[0].ID[:4] + "-" + hist[0].ID[4:6] + "-" + hist[0].ID[6:8]
	loaded, err := engine.LoadHistory(filepath.Join(root, date, hist[0].ID+".json"))
	if err != nil {
		t.Fatalf("LoadHistory err: %v", err)
	}
	if len(loaded) != 5 {
		t.Fatalf("stored file has %d messages, want 5 without duplication", len(loaded))
	}
}
