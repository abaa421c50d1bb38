package secretkeys

import (
	"strings"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/processlink/processlink-files-step/stepconf"
)

const (
	// EnvKey lists the env var keys the step host treats as secrets (redacted in build logs).
	EnvKey    = "BITRISE_SECRET_ENV_KEY_LIST"
	separator = ","
)

// Manager reads the secret env key list.
type Manager interface {
	Load(envRepository env.Repository) []string
}

type manager struct {
}

// NewManager ...
func NewManager() Manager {
	return manager{}
}

// Load ...
func (manager) Load(envRepository env.Repository) []string {
	value := envRepository.Get(EnvKey)
	if value == "" {
		return nil
	}
	return strings.Split(value, separator)
}

// Provider resolves named secrets from env vars the step host injected.
type Provider struct {
	envRepository env.Repository
	manager       Manager
	envKeys       map[string]string
}

// NewProvider returns a Provider where envKeys maps a secret name to the env var holding it.
func NewProvider(envRepository env.Repository, envKeys map[string]string) *Provider {
	return &Provider{
		envRepository: envRepository,
		manager:       NewManager(),
		envKeys:       envKeys,
	}
}

// Secret returns the named secret, or an empty Secret when it is not available.
func (p *Provider) Secret(name string) stepconf.Secret {
	key, ok := p.envKeys[name]
	if !ok {
		return ""
	}
	return stepconf.Secret(p.envRepository.Get(key))
}

// Registered reports whether the env var behind the named secret is on the host's
// secret list, and so is redacted from build logs.
func (p *Provider) Registered(name string) bool {
	key, ok := p.envKeys[name]
	if !ok {
		return false
	}
	for _, secretKey := range p.manager.Load(p.envRepository) {
		if strings.TrimSpace(secretKey) == key {
			return true
		}
	}
	return false
}
