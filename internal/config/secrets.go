package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Vendor names used as secret keys, metric labels and log fields.
const (
	VendorRemoveBG = "removebg"
	VendorClipdrop = "clipdrop"
	VendorGemini   = "gemini"
)

// ErrMissingSecret is returned when a vendor has no API key configured.
var ErrMissingSecret = errors.New("API key not configured")

// Secrets holds the vendor API keys resolved at startup. It is built once
// and handed to each service, so tests can inject fake credentials.
type Secrets struct {
	keys map[string]string
}

// NewSecrets collects the API keys from the loaded configuration.
func NewSecrets(cfg *Config) *Secrets {
	return &Secrets{keys: map[string]string{
		VendorRemoveBG: cfg.RemoveBG.APIKey,
		VendorClipdrop: cfg.Clipdrop.APIKey,
		VendorGemini:   cfg.Gemini.APIKey,
	}}
}

// StaticSecrets builds Secrets from an explicit vendor → key map.
func StaticSecrets(keys map[string]string) *Secrets {
	m := make(map[string]string, len(keys))
	for k, v := range keys {
		m[k] = v
	}
	return &Secrets{keys: m}
}

// Lookup returns the API key for vendor, or ErrMissingSecret.
func (s *Secrets) Lookup(vendor string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%s: %w", vendor, ErrMissingSecret)
	}
	key := s.keys[vendor]
	if key == "" {
		return "", fmt.Errorf("%s: %w", vendor, ErrMissingSecret)
	}
	return key, nil
}

// Configured reports which vendors have a key, without exposing the keys.
func (s *Secrets) Configured() map[string]bool {
	out := make(map[string]bool, 3)
	for _, v := range []string{VendorRemoveBG, VendorClipdrop, VendorGemini} {
		_, err := s.Lookup(v)
		out[v] = err == nil
	}
	return out
}

// LoadDotEnv loads the first existing .env file from paths into the process
// environment. Variables that are already set are left untouched. A missing
// file is not an error.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{".env", "configs/.env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("config: load %s: %w", p, err)
		}
		return p, nil
	}
	return "", nil
}
