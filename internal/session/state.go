// Package session holds the server-side view of a signed-in client: who it
// is, whether its profile exists, and the single live subscription that keeps
// that profile current.
package session

type State int

const (
	Anonymous State = iota
	CredentialPending
	AuthenticatedUnregistered
	AuthenticatedRegistered
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case CredentialPending:
		return "credential-pending"
	case AuthenticatedUnregistered:
		return "authenticated-unregistered"
	case AuthenticatedRegistered:
		return "authenticated-registered"
	}
	return "unknown"
}
