// Package credentialloader reads API credentials from the environment, an optional .env file
// and an optional key file.
package credentialloader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

const (
	EnvKeyName    = "COINBASE_KEY_NAME"
	EnvPrivateKey = "COINBASE_PRIVATE_KEY"
)

var (
	ErrMissingKeyName    = errors.New(EnvKeyName + " is not set")
	ErrMissingPrivateKey = errors.New(EnvPrivateKey + " is not set and no key file is configured")
)

// LoadCredentials seeds the environment from envFile when it exists, then reads the key name and
// key material. A keyFile, when given, takes precedence over the environment for the key material.
// Variables already present in the environment are never overwritten by envFile.
func LoadCredentials(envFile, keyFile string) (entity.Credentials, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return entity.Credentials{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return entity.Credentials{}, fmt.Errorf("failed to stat env file %s: %w", envFile, err)
		}
	}

	creds := entity.Credentials{
		KeyName:    strings.TrimSpace(os.Getenv(EnvKeyName)),
		PrivateKey: os.Getenv(EnvPrivateKey),
	}

	if keyFile != "" {
		lines, err := utils.ReadLines(keyFile)
		if err != nil {
			return entity.Credentials{}, fmt.Errorf("failed to read key file: %w", err)
		}
		creds.PrivateKey = strings.Join(lines, "\n")
	}

	// Single-line env values often carry the PEM line breaks escaped.
	creds.PrivateKey = strings.TrimSpace(strings.ReplaceAll(creds.PrivateKey, `\n`, "\n"))

	if creds.KeyName == "" {
		return entity.Credentials{}, ErrMissingKeyName
	}
	if creds.PrivateKey == "" {
		return entity.Credentials{}, ErrMissingPrivateKey
	}
	return creds, nil
}
