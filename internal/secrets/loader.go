package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MinLength is the shortest secret accepted by Load and Save.
const MinLength = 10

// ErrTooShort is returned for secrets shorter than MinLength.
var ErrTooShort = errors.New("secret is too short")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
}

// Load returns the resolved secret value from the provided source. When File is
// set it takes precedence over Value. The returned secret is always trimmed. An
// error is returned when neither File nor Value contain a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && strings.TrimSpace(src.Value) != "" {
				return Validate(name, src.Value)
			}
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return Validate(name, secret)
}

// Validate trims value and checks its length.
func Validate(name, value string) (string, error) {
	secret := strings.TrimSpace(value)
	if len([]rune(secret)) < MinLength {
		return "", fmt.Errorf("%s: %w (minimum %d characters)", name, ErrTooShort, MinLength)
	}
	return secret, nil
}

// Save writes value to path with owner-only permissions, creating parent
// directories as needed.
func Save(path, value string) error {
	secret, err := Validate("secret", value)
	if err != nil {
		return err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("secret path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing secret to %q: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting permissions of %q: %w", path, err)
	}
	return nil
}
