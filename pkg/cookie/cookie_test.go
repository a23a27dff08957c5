package cookie

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sampleJar() []Record {
	return []Record{
		{Name: "a1", Value: "x", Domain: ".xiaohongshu.com", Path: "/", Expires: -1},
		{Name: SessionCookieName, Value: "sess", Domain: ".xiaohongshu.com", Path: "/", Expires: 4102444800, HTTPOnly: true, Secure: true, SameSite: "Lax"},
	}
}

func TestDedupe(t *testing.T) {
	in := []Record{
		{Name: "a", Value: "1", Domain: "d1"},
		{Name: "b", Value: "1", Domain: "d1"},
		{Name: "a", Value: "2", Domain: "d1"},
		{Name: "a", Value: "3", Domain: "d2"},
	}
	want := []Record{
		{Name: "a", Value: "2", Domain: "d1"},
		{Name: "b", Value: "1", Domain: "d1"},
		{Name: "a", Value: "3", Domain: "d2"},
	}
	if diff := cmp.Diff(want, Dedupe(in)); diff != "" {
		t.Errorf("Dedupe() mismatch (-want +got):\n%s", diff)
	}
}

func TestHasSession(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.True(t, HasSession(sampleJar(), now))
	assert.False(t, HasSession(nil, now))
	assert.False(t, HasSession([]Record{{Name: "a1", Value: "x"}}, now))
	assert.False(t, HasSession([]Record{{Name: SessionCookieName, Value: ""}}, now))

	expired := []Record{{Name: SessionCookieName, Value: "s", Expires: float64(now.Unix() - 10)}}
	assert.False(t, HasSession(expired, now))
}

func TestLive(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jar := []Record{
		{Name: "session", Expires: -1},
		{Name: "old", Expires: float64(now.Unix() - 1)},
		{Name: "fresh", Expires: float64(now.Unix() + 60)},
	}
	live := Live(jar, now)
	require.Len(t, live, 2)
	assert.Equal(t, "session", live[0].Name)
	assert.Equal(t, "fresh", live[1].Name)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := NewFileStore(path)
	assert.Equal(t, path, store.Path())

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.Save(sampleJar()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(sampleJar(), loaded); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreReadsPlainList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	raw := `[{"name":"web_session","value":"v","domain":".xiaohongshu.com","path":"/","expires":-1,"httpOnly":true,"secure":true,"sameSite":"Lax"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0600))

	records, err := NewFileStore(path).Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].HTTPOnly)
	assert.Equal(t, "Lax", records[0].SameSite)
}

func TestEncryptedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.enc.json")
	store := NewEncryptedStore(path, "correct horse")

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.Save(sampleJar()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), SessionCookieName)

	loaded, err := store.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(sampleJar(), loaded); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	_, err = NewEncryptedStore(path, "wrong").Load()
	assert.True(t, errors.Is(err, ErrDecrypt))
}

func TestResolvePassphraseFromEnv(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PassphraseEnv, "from-env")

	pass, err := ResolvePassphrase("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pass)
}

func TestResolvePassphraseKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PassphraseEnv, "")

	first, err := ResolvePassphrase("")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := ResolvePassphrase("")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, ForgetPassphrase())
	require.NoError(t, ForgetPassphrase())

	third, err := ResolvePassphrase("")
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestResolvePassphraseFileFallback(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)
	t.Setenv(PassphraseEnv, "")

	file := filepath.Join(t.TempDir(), "passphrase")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0600))

	pass, err := ResolvePassphrase(file)
	require.NoError(t, err)
	assert.Equal(t, "from-file", pass)
}

func TestResolvePassphraseKeyringErrorDoesNotGenerate(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, StorePassphrase("in-keyring"))

	keyring.MockInitWithError(errors.New("dbus timeout"))
	t.Cleanup(keyring.MockInit)
	t.Setenv(PassphraseEnv, "")

	file := filepath.Join(t.TempDir(), "secrets", "passphrase")
	_, err := ResolvePassphrase(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), PassphraseEnv)
	assert.Contains(t, err.Error(), "dbus timeout")

	// Nothing was generated that would shadow the keyring entry later
	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))

	_, err = ResolvePassphrase("")
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PassphraseEnv, "pw")
	dir := t.TempDir()

	_, err := NewStore(config.CookieConfig{})
	assert.Error(t, err)

	plain, err := NewStore(config.CookieConfig{Path: filepath.Join(dir, "c.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, plain)

	enc, err := NewStore(config.CookieConfig{Path: filepath.Join(dir, "e.json"), Encrypt: true})
	require.NoError(t, err)
	assert.IsType(t, &EncryptedStore{}, enc)
}
