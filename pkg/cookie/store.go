// Package cookie persists the browser cookie jar between sessions.
//
// Two stores are available: a plain JSON list and an AES-GCM encrypted file
// whose key is derived from a passphrase kept in the OS keyring, the
// XHS_COOKIE_PASSPHRASE environment variable, or a private passphrase file.
// A missing file always loads as an empty jar.
package cookie

import (
	"errors"
	"fmt"
	"os"

	"github.com/flyflypeng/xiaohongshu-skill/internal/jsonfile"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
)

// Store loads and saves the cookie jar
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
	Path() string
}

// FileStore keeps the jar as a plain JSON list
type FileStore struct {
	path string
}

// NewFileStore creates a plain JSON store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the jar; a missing file is an empty jar
func (f *FileStore) Load() ([]Record, error) {
	var records []Record
	if err := jsonfile.Read(f.path, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}
	return records, nil
}

// Save replaces the jar on disk
func (f *FileStore) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	if err := jsonfile.Write(f.path, Dedupe(records), 0600); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

// NewStore builds the store selected by cfg
func NewStore(cfg config.CookieConfig) (Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("cookie path is required")
	}
	if !cfg.Encrypt {
		return NewFileStore(cfg.Path), nil
	}

	passphrase, err := ResolvePassphrase(cfg.PassphraseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return NewEncryptedStore(cfg.Path, passphrase), nil
}
