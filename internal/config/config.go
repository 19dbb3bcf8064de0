// Package config loads the process configuration from the environment into an
// immutable struct injected into each component at construction.
package config

import (
	"fmt"
	"os"
)

// OAuthClient holds one provider's OAuth application credentials.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

// LLM configures the structured composition/extraction capability.
type LLM struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config is the full process configuration. Built once at startup, read-only
// afterwards.
type Config struct {
	OwnerID       string
	StoreURL      string
	StoreAPIToken string
	Google        OAuthClient
	Microsoft     OAuthClient
	LLM           LLM
}

// FromEnv builds a Config from environment variables. Optional env files must
// be loaded (godotenv) before calling.
func FromEnv() (*Config, error) {
	cfg := &Config{
		OwnerID:       os.Getenv("MAILBRIDGE_OWNER_ID"),
		StoreURL:      os.Getenv("ACCOUNT_STORE_URL"),
		StoreAPIToken: os.Getenv("ACCOUNT_STORE_API_TOKEN"),
		Google: OAuthClient{
			ClientID:     os.Getenv("OAUTH_GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"),
		},
		Microsoft: OAuthClient{
			ClientID:     os.Getenv("OAUTH_MICROSOFT_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_MICROSOFT_CLIENT_SECRET"),
		},
		LLM: LLM{
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   os.Getenv("LLM_MODEL"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
		},
	}

	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("env variable MAILBRIDGE_OWNER_ID must be set")
	}
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("env variable ACCOUNT_STORE_URL must be set")
	}
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil, fmt.Errorf("env variables OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET must be set")
	}
	if cfg.Microsoft.ClientID == "" || cfg.Microsoft.ClientSecret == "" {
		return nil, fmt.Errorf("env variables OAUTH_MICROSOFT_CLIENT_ID and OAUTH_MICROSOFT_CLIENT_SECRET must be set")
	}
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("env variable LLM_API_KEY must be set")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}

	return cfg, nil
}
