package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvAPIKey    = "FLICKR_API_KEY"
	EnvAPISecret = "FLICKR_API_SECRET"
)

// EnvironmentStore is a read-only CredentialStore over FLICKR_API_KEY and
// FLICKR_API_SECRET
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment key pair under any requested name
func (e *EnvironmentStore) Retrieve(name string) (*Credentials, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "env"
	}

	return &Credentials{
		Name:         name,
		APIKey:       key,
		APISecret:    os.Getenv(EnvAPISecret),
		LastModified: time.Now(),
	}, nil
}

// List returns a single entry if FLICKR_API_KEY is set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

// Exists reports whether FLICKR_API_KEY is set
func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv(EnvAPIKey) != ""
}
