// Package owner authenticates the users that own service groups.
package owner

import "strings"

// User is an account that can own service groups.
type User struct {
	ID           string `yaml:"id" json:"id"`
	LoginName    string `yaml:"login_name" json:"login_name"`
	PasswordHash string `yaml:"password_hash" json:"-"`
}

// Credentials are the basic auth values presented with a request.
type Credentials struct {
	UserName string
	Password string
}

// IsZero reports whether no credentials were presented.
func (c Credentials) IsZero() bool {
	return strings.TrimSpace(c.UserName) == "" && c.Password == ""
}
