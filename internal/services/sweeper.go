package services

import (
	"context"
	"log"
	"time"
)

const (
	sweepPollInterval = 1 * time.Minute
	// StaleUploadDetail is shown to pollers of an upload that never finished.
	StaleUploadDetail = "Processing timed out."
)

// StaleUploadMarker fails uploads that have not moved since cutoff.
type StaleUploadMarker interface {
	MarkStaleAsError(ctx context.Context, cutoff time.Time, detail string) (int64, error)
}

// UploadSweeper periodically fails uploads stuck in pending or processing so
// that clients polling their status stop waiting.
type UploadSweeper struct {
	docs     StaleUploadMarker
	maxAge   time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewUploadSweeper(docs StaleUploadMarker, maxAge time.Duration) *UploadSweeper {
	return &UploadSweeper{
		docs:     docs,
		maxAge:   maxAge,
		interval: sweepPollInterval,
		stopChan: make(chan struct{}),
	}
}

func (s *UploadSweeper) Start() {
	if s.docs == nil || s.maxAge <= 0 {
		return
	}
	go s.loop()
	log.Printf("Upload sweeper started (max age %s)", s.maxAge)
}

func (s *UploadSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *UploadSweeper) loop() {
	// Run on startup as well as by interval.
	s.Sweep(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep(context.Background(), time.Now().UTC())
		}
	}
}

// Sweep fails every upload last updated before now minus the max age.
func (s *UploadSweeper) Sweep(ctx context.Context, now time.Time) int64 {
	n, err := s.docs.MarkStaleAsError(ctx, now.Add(-s.maxAge), StaleUploadDetail)
	if err != nil {
		log.Printf("upload sweeper: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("upload sweeper: marked %d stale uploads as error", n)
	}
	return n
}
