package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jmehdipour/qmail/internal/model"
)

// FileSink appends timestamp,lastName,firstName,lockerKey,token rows.
// Writes are serialized, so rows from concurrent registrations never
// interleave within one process.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return &FileSink{f: f, w: csv.NewWriter(f)}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Append(_ context.Context, ev model.AuditEvent) error {
	row := []string{
		ev.Timestamp.UTC().Format(time.RFC3339),
		ev.LastName,
		ev.FirstName,
		ev.LockerKey,
		ev.Token,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return s.f.Close()
}
