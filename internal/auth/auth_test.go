package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func exerciseStore(t *testing.T, store TokenStore) {
	t.Helper()

	_, err := store.LoadToken()
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.False(t, HasToken(store))

	require.NoError(t, store.SaveToken("tok-1"))
	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.True(t, HasToken(store))

	require.NoError(t, store.SaveToken("tok-2"))
	token, err = store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)

	require.NoError(t, store.DeleteToken())
	_, err = store.LoadToken()
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// Deleting twice is fine
	assert.NoError(t, store.DeleteToken())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path, "https://lab.example.org/api/v1")
	exerciseStore(t, store)

	require.NoError(t, store.SaveToken("persisted"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second store on the same file sees the token
	token, err := NewFileStore(path, "https://LAB.example.org").LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}

func TestFileStore_ScopedPerBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	a := NewFileStore(path, "https://a.example.org/api/v1")
	b := NewFileStore(path, "http://127.0.0.1:8000")

	require.NoError(t, a.SaveToken("token-a"))
	assert.False(t, HasToken(b))

	require.NoError(t, b.SaveToken("token-b"))
	require.NoError(t, a.DeleteToken())

	assert.False(t, HasToken(a))
	token, err := b.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "token-b", token, "logging out of one backend keeps the other's token")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tokens":{"127.0.0.1:8000":"token-b"}}`, string(data))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path, "https://lab.example.org").LoadToken()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenNotFound)
	assert.Contains(t, err.Error(), "failed to parse credentials file")
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	exerciseStore(t, NewKeyringStore("https://lab.example.org/api/v1"))
}

func TestKeyringStore_ScopedPerBackend(t *testing.T) {
	keyring.MockInit()

	a := NewKeyringStore("https://a.example.org/api/v1")
	b := NewKeyringStore("https://b.example.org/api/v1")

	require.NoError(t, a.SaveToken("token-a"))
	assert.False(t, HasToken(b))
	assert.True(t, HasToken(a))
}

func TestKeyringService(t *testing.T) {
	assert.Equal(t, "labres-cli:lab.example.org:8000", keyringService("http://LAB.example.org:8000/api/v1"))
	assert.Equal(t, "labres-cli", keyringService("not a url"))
	assert.Equal(t, "labres-cli", keyringService(""))
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)

	claims, err := InspectToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.True(t, exp.Equal(claims.ExpiresAt))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Minute)))
}

func TestInspectToken_Opaque(t *testing.T) {
	_, err := InspectToken("opaque-token")
	assert.Error(t, err)
}
