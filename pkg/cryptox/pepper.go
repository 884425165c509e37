package cryptox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyPepper = errors.New("cryptox: pepper file is empty")

// LoadOrCreatePepper reads the pepper stored at path, generating and
// persisting a new random one on first start. Losing the file invalidates
// every stored password hash.
func LoadOrCreatePepper(path string) (string, error) {
	path = filepath.Clean(path)

	raw, err := os.ReadFile(path)
	if err == nil {
		pepper := strings.TrimSpace(string(raw))
		if pepper == "" {
			return "", fmt.Errorf("%w: %s", ErrEmptyPepper, path)
		}
		return pepper, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	pepper, err := RandomString(SecretSize)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}
	// O_EXCL so two instances starting together cannot overwrite each other.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return LoadOrCreatePepper(path)
	}
	if err != nil {
		return "", fmt.Errorf("cryptox: create pepper: %w", err)
	}
	if _, err := f.WriteString(pepper); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return pepper, nil
}
