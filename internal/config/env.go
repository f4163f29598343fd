package config

import (
	"fmt"
	"os"
)

// ProvisionerKeyEnv holds the provisioning API key.
const ProvisionerKeyEnv = "E2B_API_KEY"

// providerKeyEnvs maps an agent provider identifier to the environment
// variable carrying its API key.
var providerKeyEnvs = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// RequireEnv verifies that both required API keys are present and returns
// the provisioning key. A missing key is a startup failure — there is no
// degraded mode.
func (c *Config) RequireEnv() (string, error) {
	key := os.Getenv(ProvisionerKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s is not set: a provisioning API key is required", ProvisionerKeyEnv)
	}

	envName, ok := providerKeyEnvs[c.Agent.Provider]
	if !ok {
		return "", fmt.Errorf("unknown agent provider %q in config", c.Agent.Provider)
	}
	if os.Getenv(envName) == "" {
		return "", fmt.Errorf("%s is not set: required by agent provider %q", envName, c.Agent.Provider)
	}
	return key, nil
}
