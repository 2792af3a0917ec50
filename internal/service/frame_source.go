package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FrameSource yields encoded frames. Read returns io.EOF once exhausted.
type FrameSource interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Rewinder is implemented by sources that can restart from the first frame
type Rewinder interface {
	Rewind() error
}

// DirectorySource replays the JPEG files of a directory in lexical order,
// one frame per interval.
type DirectorySource struct {
	mu       sync.Mutex
	files    []string
	pos      int
	interval time.Duration
	closed   bool
}

// NewDirectorySource lists *.jpg/*.jpeg frames under dir
func NewDirectorySource(dir string, interval time.Duration) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("frame_source: failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("frame_source: no frames in %s", dir)
	}
	sort.Strings(files)

	return &DirectorySource{files: files, interval: interval}, nil
}

// Read waits out the frame interval and returns the next frame
func (s *DirectorySource) Read(ctx context.Context) ([]byte, error) {
	if s.interval > 0 {
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	if s.closed || s.pos >= len(s.files) {
		s.mu.Unlock()
		return nil, io.EOF
	}
	path := s.files[s.pos]
	s.pos++
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frame_source: failed to read %s: %w", path, err)
	}
	return data, nil
}

// Rewind restarts playback from the first frame
func (s *DirectorySource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("frame_source: rewind after close")
	}
	s.pos = 0
	return nil
}

// Close releases the source; later reads return io.EOF
func (s *DirectorySource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of frames in one pass
func (s *DirectorySource) Len() int {
	return len(s.files)
}
