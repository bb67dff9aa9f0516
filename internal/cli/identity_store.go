package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// identity is what a successful login leaves on disk.
type identity struct {
	UserID     string    `yaml:"user_id"`
	Identifier string    `yaml:"identifier"`
	APIURL     string    `yaml:"api_url"`
	LoggedInAt time.Time `yaml:"logged_in_at"`
}

func defaultIdentityFile() string {
	if env := strings.TrimSpace(os.Getenv("RINGER_IDENTITY")); env != "" {
		return env
	}
	if dir, err := os.UserConfigDir(); err == nil && strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, "ringer", "identity.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".ringer-identity.yaml")
	}
	return "identity.yaml"
}

func loadIdentity(path string) (identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return identity{}, newCodedError(errNotLoggedIn, "run 'ringerctl login' first", nil)
		}
		return identity{}, err
	}

	var id identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return identity{}, newCodedError(errIdentityCorrupted, fmt.Sprintf("cannot read %s", path), err)
	}
	if id.UserID == "" {
		return identity{}, newCodedError(errNotLoggedIn, "run 'ringerctl login' first", nil)
	}
	return id, nil
}

func saveIdentity(path string, id identity) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(id)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// removeIdentity deletes the identity file and reports whether one existed.
func removeIdentity(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
