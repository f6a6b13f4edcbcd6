package domain

import "fmt"

// Environment selects which Stripe catalog and webhook secret a piece of
// work runs against. Test and live are never cross-written.
type Environment string

const (
	EnvironmentTest Environment = "test"
	EnvironmentLive Environment = "live"
)

// IsValid checks if the environment is a known value
func (e Environment) IsValid() bool {
	return e == EnvironmentTest || e == EnvironmentLive
}

// ParseEnvironment converts a string into an Environment
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(s)
	if !env.IsValid() {
		return "", fmt.Errorf("invalid environment %q (want %q or %q)", s, EnvironmentTest, EnvironmentLive)
	}
	return env, nil
}

// Environments lists both environments in a stable order.
func Environments() []Environment {
	return []Environment{EnvironmentTest, EnvironmentLive}
}
