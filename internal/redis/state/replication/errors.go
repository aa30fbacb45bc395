package replication

import (
	"errors"
	"fmt"
)

var ErrUnexpectedReply = errors.New("unexpected reply from master")

// HandshakeError reports the state the handshake was in when it stopped.
type HandshakeError struct {
	State State
	Err   error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("replication handshake failed in state %s: %v", e.State, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}
