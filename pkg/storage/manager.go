package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// extensions maps the image MIME types the site serves to file extensions
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Manager handles artifact files in a single directory
type Manager struct {
	outputDir string
	artifacts map[string]string
	mu        sync.RWMutex
}

// NewManager creates the directory if needed and indexes existing artifacts
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		artifacts: make(map[string]string),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	known := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		known[ext] = true
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !known[ext] {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		m.artifacts[name] = filepath.Join(m.outputDir, entry.Name())
	}

	return nil
}

// Has reports whether an artifact with the given name exists
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	path, ok := m.artifacts[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	if _, err := os.Stat(path); err != nil {
		m.mu.Lock()
		delete(m.artifacts, name)
		m.mu.Unlock()
		return false
	}
	return true
}

// Save writes r to name+ext atomically and returns the file path
func (m *Manager) Save(r io.Reader, name, ext string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	filename := filepath.Join(m.outputDir, name+ext)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.artifacts[name] = filename
	m.mu.Unlock()

	return filename, nil
}

// SaveDataURL decodes a base64 image data URL, as found in an img src, and
// saves it under name with the extension of its MIME type
func (m *Manager) SaveDataURL(dataURL, name string) (string, error) {
	mime, payload, err := ParseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	ext, ok := extensions[mime]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", mime)
	}
	return m.Save(bytes.NewReader(payload), name, ext)
}

// ParseDataURL splits a base64 data URL into its MIME type and decoded bytes
func ParseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return strings.ToLower(mime), payload, nil
}

// Path returns the file path of a stored artifact
func (m *Manager) Path(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.artifacts[name]
	return path, ok
}

// List returns the stored artifact names in order
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.artifacts))
	for name := range m.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOutputDir returns the artifact directory
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of stored artifacts
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}
