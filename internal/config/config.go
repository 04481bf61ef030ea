package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired    = errors.New("missing required configuration")
	ErrNoCredentials      = errors.New("no usable storage credentials")
	ErrInvalidCredentials = errors.New("invalid storage credentials")
)

type Config struct {
	// Search provider
	SerperAPIKey string `envconfig:"SERPER_API_KEY"`

	// Storage collaborator (Google Sheets)
	ControlSheetID        string `envconfig:"CONTROL_SHEET_ID"`
	GoogleCredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`
	GoogleCredentialsPath string `envconfig:"GOOGLE_CREDENTIALS_PATH" default:"credentials.json"`
	AdminEmail            string `envconfig:"ADMIN_EMAIL"`

	// Sharding: comma-separated list of state names this process owns.
	// Empty means all states.
	TargetStates string `envconfig:"TARGET_STATES"`

	// Notifications
	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	EnableReports bool   `envconfig:"ENABLE_REPORTS" default:"true"`

	// Inputs & run policy
	InputsDir  string `envconfig:"INPUTS_DIR" default:"inputs"`
	PolicyPath string `envconfig:"POLICY_PATH" default:"agent.yaml"`

	// Liveness endpoint
	Port int `envconfig:"PORT" default:"10000"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ControlSheetID == "" {
		return fmt.Errorf("%w: CONTROL_SHEET_ID", ErrMissingRequired)
	}
	if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsPath == "" {
		return fmt.Errorf("%w: GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_PATH", ErrMissingRequired)
	}
	return nil
}

// Credentials resolves service-account material, preferring the inline JSON
// env var over the file path.
func (c *Config) Credentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		creds, err := fixPrivateKey([]byte(c.GoogleCredentialsJSON))
		if err != nil {
			return nil, fmt.Errorf("%w: GOOGLE_CREDENTIALS_JSON: %v", ErrInvalidCredentials, err)
		}
		return creds, nil
	}

	creds, err := os.ReadFile(c.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	return creds, nil
}

// fixPrivateKey repairs escaped newlines in the private_key field, which show
// up when the service-account JSON is pasted into an env var.
func fixPrivateKey(raw []byte) ([]byte, error) {
	var creds map[string]any
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, err
	}
	if pk, ok := creds["private_key"].(string); ok && strings.Contains(pk, `\n`) {
		creds["private_key"] = strings.ReplaceAll(pk, `\n`, "\n")
		return json.Marshal(creds)
	}
	return raw, nil
}
