package classification

import (
	"log/slog"
	"sync"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// Store holds the active classification table. Readers take one snapshot per
// classification; Reload swaps the table atomically for later requests.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg domain.ClassificationConfig
}

func NewStore(cfg domain.ClassificationConfig) *Store {
	return &Store{cfg: cfg}
}

// Open loads path once and remembers it for Reload.
func Open(path string) (*Store, error) {
	cfg, fromFile, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if !fromFile {
		slog.Warn("classification_config_missing", "path", path, "fallback", "built-in")
	}
	slog.Info("classification_config_loaded", "path", path, "types", cfg.Len(), "from_file", fromFile)
	return &Store{path: path, cfg: cfg}, nil
}

func (s *Store) Snapshot() domain.ClassificationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) Replace(cfg domain.ClassificationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Reload re-reads the file given to Open. On error the current table stays.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	cfg, fromFile, err := LoadFile(s.path)
	if err != nil {
		slog.Error("classification_config_reload_failed", "path", s.path, "error", err)
		return err
	}
	s.Replace(cfg)
	slog.Info("classification_config_reloaded", "path", s.path, "types", cfg.Len(), "from_file", fromFile)
	return nil
}
