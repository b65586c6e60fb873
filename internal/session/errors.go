package session

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleVersion is wrapped by *VersionError
	ErrIncompatibleVersion = errors.New("incorrect software version")
	// ErrUnableToConnect is returned when the connector fails
	ErrUnableToConnect = errors.New("unable to connect to server")
	// ErrNoSuchServer is returned for an index or address not in the list
	ErrNoSuchServer = errors.New("no such server")
	// ErrDisposed is returned by a session after Close
	ErrDisposed = errors.New("session closed")
)

// VersionError refuses a join to a server running another build
type VersionError struct {
	Address string
	Remote  string
	Local   string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: %s runs %s, this client is %s", ErrIncompatibleVersion, e.Address, e.Remote, e.Local)
}

func (e *VersionError) Unwrap() error {
	return ErrIncompatibleVersion
}
