// Package auth supplies the bearer token sent on the push channel handshake.
//
// Tokens are resolved on every dial, so a token file rotated by another
// process is picked up on the next reconnect without a restart.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrEmptyToken is returned when a token source yields an empty token.
var ErrEmptyToken = errors.New("empty token")

// TokenSource returns the token for the next handshake.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token. An empty Static sends no Authorization header.
type Static string

// Token returns the fixed token.
func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}

// FileSource reads the token from a file, re-reading it only when the file's
// modification time changes.
type FileSource struct {
	path string

	mu      sync.Mutex
	token   string
	modTime time.Time
}

// NewFileSource creates a token source backed by path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Token returns the trimmed file contents.
func (f *FileSource) Token(context.Context) (string, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return "", fmt.Errorf("stat token file: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token != "" && info.ModTime().Equal(f.modTime) {
		return f.token, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%s: %w", f.path, ErrEmptyToken)
	}

	f.token = token
	f.modTime = info.ModTime()
	return token, nil
}

// FromConfig picks a file source when path is set, else the static token.
func FromConfig(token, path string) TokenSource {
	if path != "" {
		return NewFileSource(path)
	}
	return Static(token)
}
