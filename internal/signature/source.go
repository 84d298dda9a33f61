package signature

import "os"

// DefaultEnvKey is the environment variable holding the Razorpay key secret.
const DefaultEnvKey = "RAZORPAY_KEY_SECRET"

// SecretSource supplies the shared signing secret. Implementations must be
// safe for concurrent use; the verifier calls KeySecret once per check.
type SecretSource interface {
	KeySecret() string
}

// Static is a fixed secret, typically from the config file.
type Static string

func (s Static) KeySecret() string { return string(s) }

// Env reads the named environment variable on every call, so a rotated
// secret is picked up without a restart.
type Env string

func (e Env) KeySecret() string {
	key := string(e)
	if key == "" {
		key = DefaultEnvKey
	}
	return os.Getenv(key)
}

// Chain returns the first non-empty secret from its sources.
type Chain []SecretSource

func (c Chain) KeySecret() string {
	for _, src := range c {
		if src == nil {
			continue
		}
		if s := src.KeySecret(); s != "" {
			return s
		}
	}
	return ""
}
