package storage

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.Zero(t, manager.Count())
	assert.False(t, manager.Has("login_qrcode"))

	path, err := manager.Save(bytes.NewReader(pngBytes), "login_qrcode", ".png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "login_qrcode.png"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)
	assert.True(t, manager.Has("login_qrcode"))
	assert.Equal(t, 1, manager.Count())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be gone")

	// Artifacts written by an earlier run are indexed on creation
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "cover.jpg"), []byte("jpeg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("ignored"), 0644))

	manager2, err := NewManager(tempDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"cover", "login_qrcode"}, manager2.List())
}

func TestHasForgetsDeletedFiles(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := manager.Save(bytes.NewReader(pngBytes), "qr", ".png")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	assert.False(t, manager.Has("qr"))
	assert.Zero(t, manager.Count())
}

func TestSaveRejectsPathNames(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.Save(bytes.NewReader(pngBytes), "../escape", ".png")
	assert.Error(t, err)
	_, err = manager.Save(bytes.NewReader(pngBytes), "", ".png")
	assert.Error(t, err)
}

func TestSaveDataURL(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	path, err := manager.SaveDataURL(src, "login_qrcode")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		mime    string
		wantErr bool
	}{
		{name: "png", input: "data:image/png;base64,aGk=", mime: "image/png"},
		{name: "upper case mime", input: "data:IMAGE/JPEG;base64,aGk=", mime: "image/jpeg"},
		{name: "remote url", input: "https://example.com/qr.png", wantErr: true},
		{name: "no payload", input: "data:image/png;base64", wantErr: true},
		{name: "not base64", input: "data:image/svg+xml,<svg/>", wantErr: true},
		{name: "bad payload", input: "data:image/png;base64,!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, payload, err := ParseDataURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mime)
			assert.Equal(t, []byte("hi"), payload)
		})
	}
}

func TestSaveDataURLUnsupportedType(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.SaveDataURL("data:application/pdf;base64,aGk=", "doc")
	assert.Error(t, err)
}
