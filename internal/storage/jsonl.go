package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"abiScope/internal/model"
)

// JsonlRejects writes rejected rows as JSON lines to a file held open for the
// lifetime of a run.
type JsonlRejects struct {
	mu      sync.Mutex
	file    *os.File
	enc     *json.Encoder
	written int
}

// OpenJsonlRejects opens path for appending, creating it and its directory.
func OpenJsonlRejects(path string) (*JsonlRejects, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create rejects dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open rejects file: %w", err)
	}
	return &JsonlRejects{file: file, enc: json.NewEncoder(file)}, nil
}

// PutRejects appends rejects. A nil sink drops them.
func (s *JsonlRejects) PutRejects(rejects []model.Reject) error {
	if s == nil || len(rejects) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("rejects file is closed")
	}
	for _, reject := range rejects {
		if err := s.enc.Encode(reject); err != nil {
			return fmt.Errorf("write reject %s: %w", reject.ID, err)
		}
		s.written++
	}
	return nil
}

// Written reports how many rejects went to the file since it was opened.
func (s *JsonlRejects) Written() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close syncs and closes the file. Later writes fail.
func (s *JsonlRejects) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	file := s.file
	s.file, s.enc = nil, nil
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync rejects file: %w", err)
	}
	return file.Close()
}
