package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDecodesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/levels", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Password Cracker","points":100}]`))
	}))
	defer server.Close()

	var levels []Level
	require.NoError(t, NewClient(server.URL+"/", "tok").Get(context.Background(), "/api/v1/levels", &levels))
	require.Len(t, levels, 1)
	assert.Equal(t, "Password Cracker", levels[0].Name)
}

func TestClientReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"ALREADY_COMPLETED_TODAY","message":"Level already completed today"}}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "").Post(context.Background(), "/api/v1/attempts", map[string]int{"level_id": 1}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.True(t, IsCode(err, "ALREADY_COMPLETED_TODAY"))
	assert.Equal(t, "Level already completed today (ALREADY_COMPLETED_TODAY)", err.Error())
}

func TestClientPlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewClient(server.URL, "").Get(context.Background(), "/", nil)
	require.Error(t, err)
	assert.False(t, IsCode(err, ""))
	assert.Equal(t, "HTTP 503: Stream closed", err.Error())
}

func TestConfigTokenFile(t *testing.T) {
	cfg := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	// Missing file is fine
	require.NoError(t, cfg.LoadToken())
	assert.Empty(t, cfg.Token)

	require.NoError(t, cfg.SaveToken("abc"))
	data, err := os.ReadFile(cfg.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, os.WriteFile(cfg.TokenFile, []byte("abc\n"), 0o600))
	cfg.Token = ""
	require.NoError(t, cfg.LoadToken())
	assert.Equal(t, "abc", cfg.Token)

	require.NoError(t, cfg.ClearToken())
	assert.Empty(t, cfg.Token)
	_, err = os.Stat(cfg.TokenFile)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, cfg.ClearToken())
}
