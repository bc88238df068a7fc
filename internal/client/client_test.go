package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
)

var fastPoll = PollOptions{Attempts: 3, Interval: time.Millisecond}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func strPtr(s string) *string { return &s }

func TestUploadSendsMultipart(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "notes.txt" || string(data) != "hello" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		writeJSON(w, http.StatusAccepted, models.UploadAccepted{DocumentID: id, FileName: "notes.txt", Status: "pending"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("hello"), 0o644)

	accepted, err := New(srv.URL).Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if accepted.DocumentID != id {
		t.Fatalf("unexpected document id %s", accepted.DocumentID)
	}
}

func TestWaitForDocumentDone(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filename") != "a.pdf" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "detail": "No status found for this file."})
		case 2:
			writeJSON(w, http.StatusOK, models.UploadStatusResponse{Status: "pending"})
		default:
			writeJSON(w, http.StatusOK, models.UploadStatusResponse{Status: "done", SummaryMessage: strPtr("summary")})
		}
	}))
	defer srv.Close()

	summary, err := New(srv.URL).WaitForDocument(context.Background(), "a.pdf", "", fastPoll)
	if err != nil || summary != "summary" {
		t.Fatalf("expected summary, got %q %v", summary, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
}

func TestWaitForDocumentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.UploadStatusResponse{Status: "error"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).WaitForDocument(context.Background(), "a.pdf", "", fastPoll)
	var procErr *ProcessingError
	if !errors.As(err, &procErr) || procErr.Detail != "Processing failed." {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestWaitForDocumentExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, models.UploadStatusResponse{Status: "processing"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).WaitForDocument(context.Background(), "a.pdf", "", fastPoll)
	if !errors.Is(err, ErrStillPending) {
		t.Fatalf("expected ErrStillPending, got %v", err)
	}
	if calls != int32(fastPoll.Attempts) {
		t.Fatalf("expected %d polls, got %d", fastPoll.Attempts, calls)
	}
}

func TestWaitForDocumentTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).WaitForDocument(context.Background(), "a.pdf", "", fastPoll)
	if err == nil || errors.Is(err, ErrStillPending) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestUploadAllTracksEachFile(t *testing.T) {
	ids := map[string]uuid.UUID{"ok.txt": uuid.New(), "bad.txt": uuid.New()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload/":
			_, header, _ := r.FormFile("file")
			writeJSON(w, http.StatusAccepted, models.UploadAccepted{DocumentID: ids[header.Filename], FileName: header.Filename})
		case "/upload/status":
			if r.URL.Query().Get("document_id") == ids["ok.txt"].String() {
				writeJSON(w, http.StatusOK, models.UploadStatusResponse{Status: "done", SummaryMessage: strPtr("fine")})
				return
			}
			writeJSON(w, http.StatusOK, models.UploadStatusResponse{Status: "error", Detail: strPtr("No content extracted.")})
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	var paths []string
	for name := range ids {
		p := filepath.Join(dir, name)
		os.WriteFile(p, []byte("x"), 0o644)
		paths = append(paths, p)
	}

	var mu sync.Mutex
	var events int
	list := New(srv.URL).UploadAll(context.Background(), paths, fastPoll, func(FileStatus) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	if events != 3*len(paths) {
		t.Fatalf("expected %d events, got %d", 3*len(paths), events)
	}
	for _, st := range list.Snapshot() {
		switch st.Name {
		case "ok.txt":
			if st.State != StateSuccess || st.Summary != "fine" {
				t.Fatalf("unexpected status %+v", st)
			}
		case "bad.txt":
			if st.State != StateError || st.Error != "No content extracted." {
				t.Fatalf("unexpected status %+v", st)
			}
		}
	}
}

func TestChatStreamsChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Question() != "hi" {
			t.Errorf("unexpected question %q", req.Question())
		}
		w.Header().Set("X-Chat-ID", "chat-9")
		io.WriteString(w, "first ")
		w.(http.Flusher).Flush()
		io.WriteString(w, "second")
	}))
	defer srv.Close()

	var got strings.Builder
	req := &models.ChatRequest{Messages: []models.ChatMessage{{Role: "human", Content: "hi"}}}
	chatID, err := New(srv.URL).Chat(context.Background(), req, func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.String() != "first second" || chatID != "chat-9" {
		t.Fatalf("unexpected stream %q id %q", got.String(), chatID)
	}
}

func TestAPIErrorUsesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":  map[string]string{"code": "NOT_FOUND"},
			"detail": "Document not found",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.Token = "tok"
	_, err := c.DeleteDocument(context.Background(), uuid.NewString())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 || apiErr.Message != "Document not found" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestProxyErrorString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, models.ProxyResponse{Error: "Missing or invalid parameters"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).GeoSearch(context.Background(), &models.GeoSearchRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Missing or invalid parameters" {
		t.Fatalf("unexpected error %v", err)
	}
}
