// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ValidPort reports whether v is a usable TCP port number.
func ValidPort(v string) error {
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("must be a valid TCP port (got %q)", v)
	}
	return nil
}

// Parse fills target (a pointer to a struct with `env` tags) from the
// environment. A .env file in the working directory, if present, is loaded
// first without overriding variables that are already set.
func Parse(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
