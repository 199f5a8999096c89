// Package storage holds the client side of FitKeeper: the local session
// file, the HTTP API client and the identity stream the CLI gates on.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultFile is the name of the local storage file.
const DefaultFile = "storage.json"

// LocalStorage is the persisted client state. It doubles as the guest
// marker of the session gate.
type LocalStorage struct {
	Token string `json:"token,omitempty"`
	Guest bool   `json:"isGuest"`

	path string
	mu   sync.Mutex
}

// NewLocalStorage returns storage backed by path, or DefaultFile when path
// is empty. Nothing is read until Load.
func NewLocalStorage(path string) *LocalStorage {
	if path == "" {
		path = DefaultFile
	}
	return &LocalStorage{path: path}
}

// Load reads the storage file. A missing file leaves an empty state.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	data, err := os.ReadFile(ls.file())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ls.Token, ls.Guest = "", false
			return nil
		}
		return fmt.Errorf("read storage: %w", err)
	}
	if err := json.Unmarshal(data, ls); err != nil {
		return fmt.Errorf("decode storage: %w", err)
	}
	return nil
}

// Save writes the current state to the storage file.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.save()
}

func (ls *LocalStorage) save() error {
	data, err := json.MarshalIndent(ls, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}
	if err := os.WriteFile(ls.file(), data, 0600); err != nil {
		return fmt.Errorf("write storage: %w", err)
	}
	return nil
}

func (ls *LocalStorage) file() string {
	if ls.path == "" {
		return DefaultFile
	}
	return ls.path
}

// SessionToken returns the stored session token.
func (ls *LocalStorage) SessionToken() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.Token
}

// SignedIn stores token, drops the guest marker and saves.
func (ls *LocalStorage) SignedIn(token string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Token = token
	ls.Guest = false
	return ls.save()
}

// ContinueAsGuest sets the guest marker and saves.
func (ls *LocalStorage) ContinueAsGuest() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Guest = true
	return ls.save()
}

// Clear forgets the token and the guest marker and saves.
func (ls *LocalStorage) Clear() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Token = ""
	ls.Guest = false
	return ls.save()
}

// IsGuest reports the guest marker.
func (ls *LocalStorage) IsGuest() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.Guest
}

// ClearGuest removes the guest marker. The file is only written when the
// marker was set.
func (ls *LocalStorage) ClearGuest() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.Guest {
		return nil
	}
	ls.Guest = false
	return ls.save()
}
