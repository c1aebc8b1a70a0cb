// Package auth stores the catalog bearer token in the system keyring.
package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/yhkl-dev/tunecli/where"
)

const user = "catalog-token"

// Source names where a token came from
type Source string

const (
	SourceNone    Source = "none"
	SourceConfig  Source = "config"
	SourceKeyring Source = "keyring"
)

// SetToken persists the catalog token to the system keyring
func SetToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	return keyring.Set(where.App, user, token)
}

// GetToken retrieves the catalog token from the system keyring
func GetToken() (string, error) {
	return keyring.Get(where.App, user)
}

// DeleteToken removes the catalog token; a missing token is not an error
func DeleteToken() error {
	err := keyring.Delete(where.App, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Resolve prefers the configured token and falls back to the keyring
func Resolve(configured string) (string, Source, error) {
	if configured != "" {
		return configured, SourceConfig, nil
	}
	token, err := GetToken()
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", SourceNone, nil
	case err != nil:
		return "", SourceNone, fmt.Errorf("read keyring: %w", err)
	}
	return token, SourceKeyring, nil
}
