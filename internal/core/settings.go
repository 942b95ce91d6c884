package core

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Tenant setting keys.
const (
	KeyHost     = "smtp_host"
	KeyPort     = "smtp_port"
	KeySecure   = "smtp_secure"
	KeyUsername = "smtp_username"
	KeyPassword = "smtp_password"
)

const maxFieldLen = 255

// Settings is the raw tenant configuration as plain key/value data.
type Settings map[string]any

// Get retrieves a configuration value by key.
func (s Settings) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Set sets a configuration value.
func (s Settings) Set(key string, value any) {
	s[key] = value
}

// SMTPConfig is a validated tenant SMTP configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	Username string
	Password string
}

// Addr returns the host:port pair.
func (c SMTPConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Settings converts the config back into tenant settings.
func (c SMTPConfig) Settings() Settings {
	return Settings{
		KeyHost:     c.Host,
		KeyPort:     c.Port,
		KeySecure:   c.Secure,
		KeyUsername: c.Username,
		KeyPassword: c.Password,
	}
}

// Validate re-checks an already typed config against the same rules.
func (c SMTPConfig) Validate() error {
	_, err := ValidateSettings(c.Settings())
	return err
}

// ValidateSettings checks every required field and returns the typed config.
// All violations are reported together as ValidationErrors.
func ValidateSettings(raw Settings) (SMTPConfig, error) {
	var (
		cfg  SMTPConfig
		errs ValidationErrors
	)

	collect := func(err *ValidationError) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err *ValidationError
	cfg.Host, err = stringField(raw, KeyHost)
	collect(err)
	cfg.Port, err = portField(raw, KeyPort)
	collect(err)
	cfg.Secure, err = boolField(raw, KeySecure)
	collect(err)
	cfg.Username, err = stringField(raw, KeyUsername)
	collect(err)
	cfg.Password, err = stringField(raw, KeyPassword)
	collect(err)

	if len(errs) > 0 {
		return SMTPConfig{}, errs
	}
	return cfg, nil
}

func stringField(raw Settings, key string) (string, *ValidationError) {
	v, ok := raw.Get(key)
	if !ok || v == nil {
		return "", NewValidationError(key, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", NewValidationErrorWithValue(key, "must be a string", v)
	}
	if n := utf8.RuneCountInString(s); n < 1 || n > maxFieldLen {
		if n == 0 {
			return "", NewValidationError(key, "is required")
		}
		return "", NewValidationError(key, "must be between 1 and 255 characters")
	}
	return s, nil
}

func portField(raw Settings, key string) (int, *ValidationError) {
	v, ok := raw.Get(key)
	if !ok || v == nil {
		return 0, NewValidationError(key, "is required")
	}

	var port int64
	switch n := v.(type) {
	case int:
		port = int64(n)
	case int8:
		port = int64(n)
	case int16:
		port = int64(n)
	case int32:
		port = int64(n)
	case int64:
		port = n
	case uint:
		port = int64(min(n, math.MaxInt32))
	case uint8:
		port = int64(n)
	case uint16:
		port = int64(n)
	case uint32:
		port = int64(n)
	case uint64:
		port = int64(min(n, math.MaxInt32))
	case float32:
		if float32(int64(n)) != n {
			return 0, NewValidationErrorWithValue(key, "must be an integer", v)
		}
		port = int64(n)
	case float64:
		if float64(int64(n)) != n {
			return 0, NewValidationErrorWithValue(key, "must be an integer", v)
		}
		port = int64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, NewValidationError(key, "is required")
		}
		p, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, NewValidationErrorWithValue(key, "must be an integer", v)
		}
		port = p
	default:
		return 0, NewValidationErrorWithValue(key, "must be an integer", v)
	}

	if port < 1 || port > 65535 {
		return 0, NewValidationErrorWithValue(key, "must be between 1 and 65535", v)
	}
	return int(port), nil
}

func boolField(raw Settings, key string) (bool, *ValidationError) {
	v, ok := raw.Get(key)
	if !ok || v == nil {
		return false, NewValidationError(key, "is required")
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch b {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "":
			return false, NewValidationError(key, "is required")
		}
	}
	return false, NewValidationErrorWithValue(key, "must be a boolean", v)
}
