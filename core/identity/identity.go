package identity

import "fmt"

// Authenticator proves that a caller controls the identity it asserts. The
// custody engine and admin module consult one before trusting any
// caller-supplied address; transports are expected to verify signatures and
// then vouch for the recovered address through an implementation of this
// interface.
type Authenticator interface {
	Authenticate(addr [20]byte) error
}

// AllowAll accepts every identity. It is the right choice when the transport
// has already proven control of the address (e.g. signature recovery at the
// RPC layer).
type AllowAll struct{}

// Authenticate implements Authenticator.
func (AllowAll) Authenticate([20]byte) error { return nil }

// Allowlist accepts only identities registered up front. Useful for tests and
// for embedding the engine behind a closed membership set.
type Allowlist struct {
	members map[[20]byte]struct{}
}

// NewAllowlist builds an allowlist from the supplied addresses.
func NewAllowlist(addrs ...[20]byte) *Allowlist {
	members := make(map[[20]byte]struct{}, len(addrs))
	for _, addr := range addrs {
		members[addr] = struct{}{}
	}
	return &Allowlist{members: members}
}

// Add registers an address.
func (l *Allowlist) Add(addr [20]byte) {
	if l.members == nil {
		l.members = make(map[[20]byte]struct{})
	}
	l.members[addr] = struct{}{}
}

// Authenticate implements Authenticator.
func (l *Allowlist) Authenticate(addr [20]byte) error {
	if l == nil {
		return fmt.Errorf("identity: nil allowlist")
	}
	if _, ok := l.members[addr]; !ok {
		return fmt.Errorf("identity: unknown address")
	}
	return nil
}
