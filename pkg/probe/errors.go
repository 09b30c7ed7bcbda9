package probe

import "errors"

var (
	// ErrSessionConstruction is returned when the ICMP endpoint for a family cannot be opened
	ErrSessionConstruction = errors.New("could not create icmp client")
	// ErrFamilyMismatch is returned when a session is requested for an address of the other family
	ErrFamilyMismatch = errors.New("address family mismatch")
	// ErrClosed is returned by sessions of a closed client
	ErrClosed = errors.New("icmp client closed")
	// ErrTimeout is returned when no reply arrived in time
	ErrTimeout = errors.New("echo reply timeout")
)
