package upload

import (
	"fmt"
	"strings"
)

// ConfigError is a missing or incomplete static configuration.
type ConfigError struct {
	// Label is the short status text, e.g. "no site ID".
	Label   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// PayloadError is an inbound payload that is neither bytes nor text.
type PayloadError struct {
	Label   string
	Message string
}

func (e *PayloadError) Error() string {
	return e.Message
}

// Validate checks cfg and msg and builds the Request to send. Before returning an error it
// reports PhaseError on reporter with the label of the failed check.
func Validate(cfg *Config, msg Message, reporter Reporter) (Request, error) {
	if err := validateConfig(cfg); err != nil {
		reporter.Report(PhaseError, err.Label)
		return Request{}, err
	}

	apiKey := cfg.Credentials.Secret(APIKeySecret)

	var payload []byte
	switch p := msg.Payload.(type) {
	case []byte:
		payload = p
	case string:
		payload = []byte(p)
	default:
		err := &PayloadError{
			Label:   "invalid payload",
			Message: fmt.Sprintf("payload must be a byte slice or string, got %T", msg.Payload),
		}
		reporter.Report(PhaseError, err.Label)
		return Request{}, err
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return Request{
		Payload:  payload,
		Filename: resolveFilename(msg.Filename, cfg.Filename),
		SiteID:   cfg.SiteID,
		APIKey:   apiKey,
		APIURL:   apiURL,
		Timeout:  timeout,
	}, nil
}

func validateConfig(cfg *Config) *ConfigError {
	switch {
	case cfg == nil:
		return &ConfigError{Label: "no config", Message: "No Process Link configuration selected"}
	case cfg.SiteID == "":
		return &ConfigError{Label: "no site ID", Message: "Site ID not configured"}
	case cfg.Credentials == nil || cfg.Credentials.Secret(APIKeySecret) == "":
		return &ConfigError{Label: "no API key", Message: "API Key not configured"}
	}
	return nil
}

func resolveFilename(candidates ...string) string {
	name := DefaultFilename
	for _, c := range candidates {
		if c != "" {
			name = c
			break
		}
	}

	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
