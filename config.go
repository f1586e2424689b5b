package compositor

import (
	"time"

	"github.com/imdario/mergo"
)

// EnvAugmenter computes additional environment variables for the child
// process — in the real deployment, platform-appropriate dynamic-library
// search paths. Computing those paths is an external collaborator (spec
// treats it as supplied by a helper); AugmentEnv only needs to know how to
// fold its output into the base environment.
type EnvAugmenter interface {
	AugmentEnv(base []string) []string
}

// EnvAugmenterFunc adapts a plain function to EnvAugmenter.
type EnvAugmenterFunc func(base []string) []string

// AugmentEnv implements EnvAugmenter.
func (f EnvAugmenterFunc) AugmentEnv(base []string) []string { return f(base) }

// noopEnvAugmenter leaves the environment untouched; it's the default
// when a caller doesn't supply one.
var noopEnvAugmenter = EnvAugmenterFunc(func(base []string) []string { return base })

// SupervisorConfig configures Bootstrap. Zero-value fields are filled in
// from DefaultConfig via mergo, the same pattern the teacher uses to merge
// caller-supplied session config over package defaults.
type SupervisorConfig struct {
	// NonceSource generates the correlation id for each outbound request.
	NonceSource NonceSource

	// EnvAugmenter computes additional environment variables for the
	// child process.
	EnvAugmenter EnvAugmenter

	// StdinWriteTimeout bounds how long a single write to the child's
	// stdin may block before it's treated as a submission failure.
	StdinWriteTimeout time.Duration

	// ShutdownGracePeriod bounds how long WaitForDone, counted from the
	// WaitForDone call itself, waits for the child to exit before the
	// caller's context cancellation (if any) takes over.
	ShutdownGracePeriod time.Duration

	// StderrBufferCap bounds the number of stderr bytes retained for
	// inclusion in crash error messages. Older bytes are dropped once
	// the cap is reached.
	StderrBufferCap int
}

// DefaultConfig supplies the defaults merged into a caller's
// SupervisorConfig by resolveConfig.
var DefaultConfig = SupervisorConfig{
	NonceSource:         DefaultNonceSource,
	EnvAugmenter:        noopEnvAugmenter,
	StdinWriteTimeout:   10 * time.Second,
	ShutdownGracePeriod: 30 * time.Second,
	StderrBufferCap:     1 << 20, // 1 MiB
}

func resolveConfig(cfg *SupervisorConfig) (*SupervisorConfig, error) {
	resolved := SupervisorConfig{}
	if cfg != nil {
		resolved = *cfg
	}
	if err := mergo.Merge(&resolved, DefaultConfig); err != nil {
		return nil, err
	}
	return &resolved, nil
}
