package client

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"elasticlm-backend/internal/models"
)

// ErrStillPending is returned when polling stops before the upload finished.
// The upload is left pending, not failed.
var ErrStillPending = errors.New("upload is still pending")

// ProcessingError is an upload the server reported as failed.
type ProcessingError struct {
	Detail string
}

func (e *ProcessingError) Error() string { return e.Detail }

// PollOptions bounds WaitForDocument.
type PollOptions struct {
	Attempts int
	Interval time.Duration
}

// DefaultPollOptions polls for up to two minutes.
var DefaultPollOptions = PollOptions{Attempts: 60, Interval: 2 * time.Second}

// WaitForDocument polls the status of filename, or of documentID when set,
// until it is done or failed. Non-2xx answers such as an unknown file are
// retried; a transport error stops polling.
func (c *Client) WaitForDocument(ctx context.Context, filename, documentID string, opts PollOptions) (string, error) {
	if opts.Attempts <= 0 {
		opts = DefaultPollOptions
	}

	for i := 0; i < opts.Attempts; i++ {
		var (
			st  *models.UploadStatusResponse
			err error
		)
		if documentID != "" {
			st, err = c.StatusByID(ctx, documentID)
		} else {
			st, err = c.Status(ctx, filename)
		}

		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
		case err != nil:
			return "", err
		case st.Status == models.StatusDone && st.SummaryMessage != nil && *st.SummaryMessage != "":
			return *st.SummaryMessage, nil
		case st.Status == models.StatusError:
			detail := "Processing failed."
			if st.Detail != nil && *st.Detail != "" {
				detail = *st.Detail
			}
			return "", &ProcessingError{Detail: detail}
		}

		if i == opts.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
	return "", ErrStillPending
}

// Upload states reported by UploadAll.
const (
	StatePending   = "pending"
	StateUploading = "uploading"
	StateSuccess   = "success"
	StateError     = "error"
)

// FileStatus is the progress of one file in UploadAll.
type FileStatus struct {
	Name       string
	State      string
	DocumentID string
	Summary    string
	Error      string
}

// StatusList is a mutex-guarded list of file statuses shared by upload tasks.
type StatusList struct {
	mu    sync.Mutex
	items []FileStatus
}

func (l *StatusList) update(i int, fn func(*FileStatus)) FileStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.items[i])
	return l.items[i]
}

// Snapshot returns a copy of the current statuses.
func (l *StatusList) Snapshot() []FileStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FileStatus, len(l.items))
	copy(out, l.items)
	return out
}

// UploadAll uploads every path as an independent task and polls each until it
// settles. A failed upload is still polled, since the server may have
// accepted it. fn, if set, is called after every state change.
func (c *Client) UploadAll(ctx context.Context, paths []string, opts PollOptions, fn func(FileStatus)) *StatusList {
	list := &StatusList{items: make([]FileStatus, len(paths))}
	for i, p := range paths {
		list.items[i] = FileStatus{Name: filepath.Base(p), State: StatePending}
	}

	notify := func(st FileStatus) {
		if fn != nil {
			fn(st)
		}
	}

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			notify(list.update(i, func(s *FileStatus) { s.State = StateUploading }))

			documentID := ""
			if accepted, err := c.Upload(ctx, p); err == nil {
				documentID = accepted.DocumentID.String()
			}
			notify(list.update(i, func(s *FileStatus) {
				s.State = StatePending
				s.DocumentID = documentID
			}))

			summary, err := c.WaitForDocument(ctx, filepath.Base(p), documentID, opts)
			notify(list.update(i, func(s *FileStatus) {
				switch {
				case err == nil:
					s.State = StateSuccess
					s.Summary = summary
				case errors.Is(err, ErrStillPending):
					s.State = StatePending
				default:
					s.State = StateError
					s.Error = err.Error()
				}
			}))
			return nil
		})
	}
	g.Wait()
	return list
}
