package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/websocket"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return b.String(), err
}

func TestRootCmdUnknown(t *testing.T) {
	out, err := run(t, "nonexistent")
	if err == nil {
		t.Fatal("expected an error for a nonexistent command")
	}
	if !strings.Contains(out, `unknown command "nonexistent" for "elasticlm"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAdminTokenCmd(t *testing.T) {
	out, err := run(t, "admin-token", "--secret", "s3cret", "--subject", "ops")
	if err != nil {
		t.Fatalf("admin-token: %v", err)
	}

	token, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("invalid token %q: %v", out, err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["role"] != "admin" || claims["sub"] != "ops" {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestUploadCmd(t *testing.T) {
	id := uuid.New()
	summary := "### a.txt has been successfully uploaded."
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/upload/":
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(models.UploadAccepted{DocumentID: id, FileName: "a.txt", Status: "pending"})
		case "/upload/status":
			json.NewEncoder(w).Encode(models.UploadStatusResponse{DocumentID: id, Status: "done", SummaryMessage: &summary})
		}
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.txt")
	os.WriteFile(path, []byte("hello"), 0o644)

	out, err := run(t, "upload", "--server", srv.URL, "--attempts", "2", "--interval", "1ms", path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, summary) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestChatCmdSendsSources(t *testing.T) {
	var got models.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("log\n --- \nthe answer"))
	}))
	defer srv.Close()

	out, err := run(t, "chat", "--server", srv.URL, "--source", "a.pdf,b.pdf", "what", "is", "rrf")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got.Question() != "what is rrf" || len(got.SelectedSources) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if !strings.Contains(out, "the answer") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.md", "image.png", ".hidden.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644)
	}
	os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755)

	paths, err := supportedFiles(dir)
	if err != nil {
		t.Fatalf("supportedFiles: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.md" || filepath.Base(paths[1]) != "b.pdf" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

type historyReplier struct{}

func (historyReplier) Reply(ctx context.Context, conv *models.Conversation, question string) (string, error) {
	if question == "broken" {
		return "", errors.New("search failed")
	}
	conv.Messages = append(conv.Messages, models.ChatMessage{Role: "user", Content: question})
	return fmt.Sprintf("%s (turn %d)", question, len(conv.Messages)), nil
}

func TestRegulationsCmdSharesConversation(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/ws/chat", websocket.ChatHandler(historyReplier{}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rootCmd.SetIn(strings.NewReader("notary fees\n\nbroken\nrenewals\n"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	out, err := run(t, "regulations", "--server", srv.URL)
	if err != nil {
		t.Fatalf("regulations: %v", err)
	}
	for _, want := range []string{"notary fees (turn 1)", "search failed", "renewals (turn 2)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output %q", want, out)
		}
	}
}
