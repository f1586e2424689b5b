package compositor

import "github.com/google/uuid"

// NonceSource produces opaque, unique correlation identifiers for
// outbound requests. Nonce generation is an external collaborator (the
// supervisor only needs uniqueness, not any particular encoding), so it's
// injectable through SupervisorConfig; DefaultNonceSource is the concrete
// default wired in when a caller doesn't supply one.
type NonceSource func() string

// DefaultNonceSource generates nonces from github.com/google/uuid.
func DefaultNonceSource() string {
	return uuid.New().String()
}
