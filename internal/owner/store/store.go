// Package store provides user lookups for the owner authenticator.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"smp/internal/owner"
	"smp/pkg/platform/sentinel"
)

// InMemoryUserStore holds users keyed by login name.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]owner.User
}

// NewInMemory returns a store holding users.
func NewInMemory(users ...owner.User) *InMemoryUserStore {
	s := &InMemoryUserStore{users: make(map[string]owner.User, len(users))}
	for _, u := range users {
		s.users[u.LoginName] = u
	}
	return s
}

func (s *InMemoryUserStore) FindByLoginName(_ context.Context, loginName string) (*owner.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[loginName]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

// Replace swaps the whole user set.
func (s *InMemoryUserStore) Replace(users []owner.User) {
	next := make(map[string]owner.User, len(users))
	for _, u := range users {
		next[u.LoginName] = u
	}
	s.mu.Lock()
	s.users = next
	s.mu.Unlock()
}

// Len returns the number of users.
func (s *InMemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

type usersFile struct {
	Users []owner.User `yaml:"users"`
}

// LoadFile reads a YAML users file:
//
//	users:
//	  - id: alice
//	    login_name: alice
//	    password_hash: $2a$10$...
func LoadFile(path string) (*InMemoryUserStore, error) {
	users, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return NewInMemory(users...), nil
}

// Reload replaces the users of s with the contents of path.
func (s *InMemoryUserStore) Reload(path string) error {
	users, err := readFile(path)
	if err != nil {
		return err
	}
	s.Replace(users)
	return nil
}

func readFile(path string) ([]owner.User, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var file usersFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(file.Users))
	for i, u := range file.Users {
		if u.LoginName == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("users file %s: entry %d needs login_name and password_hash", path, i)
		}
		if _, dup := seen[u.LoginName]; dup {
			return nil, fmt.Errorf("users file %s: duplicate login_name %q", path, u.LoginName)
		}
		seen[u.LoginName] = struct{}{}
		if u.ID == "" {
			file.Users[i].ID = u.LoginName
		}
	}
	return file.Users, nil
}
