package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubMarker struct {
	cutoff time.Time
	detail string
	n      int64
	err    error
}

func (s *stubMarker) MarkStaleAsError(ctx context.Context, cutoff time.Time, detail string) (int64, error) {
	s.cutoff, s.detail = cutoff, detail
	return s.n, s.err
}

func TestUploadSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	marker := &stubMarker{n: 2}
	sweeper := NewUploadSweeper(marker, 30*time.Minute)

	if got := sweeper.Sweep(context.Background(), now); got != 2 {
		t.Fatalf("expected 2 swept uploads, got %d", got)
	}
	if !marker.cutoff.Equal(now.Add(-30 * time.Minute)) {
		t.Fatalf("unexpected cutoff %s", marker.cutoff)
	}
	if marker.detail != "Processing timed out." {
		t.Fatalf("unexpected detail %q", marker.detail)
	}

	marker.err = errors.New("db down")
	if got := sweeper.Sweep(context.Background(), now); got != 0 {
		t.Fatalf("expected 0 on error, got %d", got)
	}
}

func TestUploadSweeper_StopIsIdempotent(t *testing.T) {
	sweeper := NewUploadSweeper(nil, time.Minute)
	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}
