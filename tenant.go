package smtpmail

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// tenantEnv holds tenant settings as read from the environment.
// Values stay strings so ValidateSettings reports every problem at once.
type tenantEnv struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT"`
	Secure   string `env:"SMTP_SECURE"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

// LoadTenantFromEnv reads tenant settings from SMTP_HOST, SMTP_PORT,
// SMTP_SECURE, SMTP_USERNAME and SMTP_PASSWORD. Unset variables are left
// out so validation reports them as required.
func LoadTenantFromEnv() (Settings, error) {
	cfg, err := env.ParseAs[tenantEnv]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse tenant environment: %w", err)
	}

	settings := Settings{}
	for key, value := range map[string]string{
		KeyHost:     cfg.Host,
		KeyPort:     cfg.Port,
		KeySecure:   cfg.Secure,
		KeyUsername: cfg.Username,
		KeyPassword: cfg.Password,
	} {
		if value != "" {
			settings.Set(key, value)
		}
	}
	return settings, nil
}

// LoadTenantFile reads tenant settings from a YAML file keyed like the
// tenant settings (smtp_host, smtp_port, ...). ${VAR} references are
// expanded from the environment before parsing.
func LoadTenantFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant file: %w", err)
	}

	settings := Settings{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &settings); err != nil {
		return nil, fmt.Errorf("failed to parse tenant file %s: %w", path, err)
	}
	return settings, nil
}
