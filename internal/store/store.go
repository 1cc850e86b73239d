// Package store persists encoded audiobook artifacts to the output
// directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/bookvoice/synth"
	"github.com/dgnsrekt/bookvoice/synth/wav"
)

// Store writes WAV artifacts under a single output directory. It
// implements synth.ArtifactStore.
type Store struct {
	dir string
}

// New creates the output directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write stores one artifact and returns its path. A zero-length or
// header-only artifact is rejected with ErrEmptyArtifact: an upstream
// decode failure must surface as a chunk failure, not a silent empty file.
func (s *Store) Write(name string, data []byte) (string, error) {
	if len(data) <= wav.HeaderSize {
		return "", fmt.Errorf("%w: %s (%d bytes)", synth.ErrEmptyArtifact, name, len(data))
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}

	log.Info("wrote artifact", "file", name, "size", humanize.Bytes(uint64(len(data))))
	return path, nil
}
