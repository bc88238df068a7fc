package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirWatcherReportsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := newDirWatcher(dir)
	if err != nil {
		t.Fatalf("newDirWatcher: %v", err)
	}
	w.settle = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(p string) { got <- p }) }()

	os.WriteFile(filepath.Join(dir, "skip.png"), []byte("x"), 0o644)
	target := filepath.Join(dir, "notes.pdf")
	os.WriteFile(target, []byte("part"), 0o644)
	os.WriteFile(target, []byte("part two"), 0o644)

	select {
	case p := <-got:
		if p != target {
			t.Fatalf("unexpected path %s", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for file")
	}

	select {
	case p := <-got:
		t.Fatalf("expected a single report, got extra %s", p)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
