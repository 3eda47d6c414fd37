package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/oauth2"
)

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName checks that an account name is safe to use in a file name.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("%w: account name cannot be empty", ErrInvalidAccount)
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("%w: %q must contain only letters, digits, '-' and '_'", ErrInvalidAccount, account)
	}
	return nil
}

// FileStore persists one OAuth token per account as JSON in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a token store rooted at dir.
// If dir is empty, DefaultTokenDir is used.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return &FileStore{dir: dir}
}

// Dir returns the directory tokens are stored in.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the token file path for an account.
func (s *FileStore) Path(account string) (string, error) {
	if err := validateAccountName(account); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, "token_"+account+".json"), nil
}

// Has reports whether a token file exists for the account.
func (s *FileStore) Has(account string) bool {
	path, err := s.Path(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the cached token for an account.
// It returns ErrNoToken when nothing has been cached yet.
func (s *FileStore) Load(account string) (*oauth2.Token, error) {
	path, err := s.Path(account)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w for account %s: token file is empty", ErrNoToken, account)
	}
	return &tok, nil
}

// Save writes the token for an account. The file is replaced atomically and
// is only readable by the current user.
func (s *FileStore) Save(account string, tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("token cannot be nil")
	}
	path, err := s.Path(account)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Delete removes the cached token for an account. Missing tokens are not an error.
func (s *FileStore) Delete(account string) error {
	path, err := s.Path(account)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
