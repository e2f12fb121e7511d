package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// fileStore keeps the whole document in one JSON file. Saves go
// through a temp file in the same directory followed by a rename, so a
// crash mid-write leaves the previous document intact.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("state.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error { return nil }

// Load reads the persisted document. A missing file is first run, and
// an unreadable or corrupt one degrades to first run as well: every
// category reports as never announced and the next save rewrites the
// file, which may repeat an announcement but never silences the bot.
func (s *fileStore) Load(ctx context.Context) (Document, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		s.log.Warn("state unreadable; starting from empty",
			logx.String("path", s.path), logx.Err(err))
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		s.log.Warn("state corrupt; starting from empty",
			logx.String("path", s.path), logx.Err(err))
		return Document{}, nil
	}
	return doc, nil
}

func (s *fileStore) Save(ctx context.Context, doc Document) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now().UTC()
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write state: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync state: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
