package google

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadClientConfig reads a Google "installed app" client secrets file
// (credentials.json downloaded from the Cloud console) and returns the OAuth
// client configuration without scopes. Scopes are added per account.
func LoadClientConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth client secrets %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth client secrets %s: %w", credentialsFile, err)
	}
	return conf, nil
}

// withScopes returns a copy of base restricted to the given scopes.
func withScopes(base *oauth2.Config, scopes []string) *oauth2.Config {
	conf := *base
	conf.Scopes = scopes
	return &conf
}

// DefaultTokenDir returns the directory where account tokens are cached.
func DefaultTokenDir() string {
	return filepath.Join(userCacheDir(), "agentpark")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"LOCALAPPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return homeDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
