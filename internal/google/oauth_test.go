package google

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const installedAppSecrets = `{
  "installed": {
    "client_id": "123.apps.googleusercontent.com",
    "client_secret": "shh",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestLoadClientConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(installedAppSecrets), 0600))

	conf, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "123.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, "shh", conf.ClientSecret)
	assert.Equal(t, "https://oauth2.googleapis.com/token", conf.Endpoint.TokenURL)
	assert.Empty(t, conf.Scopes)
}

func TestLoadClientConfig_Errors(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"web": 1}`), 0600))
	_, err = LoadClientConfig(path)
	assert.Error(t, err)
}

func TestWithScopesCopies(t *testing.T) {
	base := newFakeTokenServer(t).clientConfig()
	scoped := withScopes(base, []string{"a"})

	assert.Equal(t, []string{"a"}, scoped.Scopes)
	assert.Empty(t, base.Scopes)
	assert.Equal(t, base.ClientID, scoped.ClientID)
}
