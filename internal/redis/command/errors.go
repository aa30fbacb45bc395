package command

import (
	"fmt"

	"github.com/hnimtadd/craft-redis/internal/redis/resp"
)

type Kind int

const (
	KindMalformed Kind = iota
	KindWrongArity
	KindUnknownCommand
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindWrongArity:
		return "wrong arity"
	case KindUnknownCommand:
		return "unknown command"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ProtocolError is returned by Decode for any request that cannot become a
// Command.
type ProtocolError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Reply is the error frame sent to the client before the connection closes.
func (e *ProtocolError) Reply() resp.SimpleErrorData {
	switch e.Kind {
	case KindUnknownCommand:
		return resp.SimpleErrorData{Msg: e.Msg}
	default:
		return resp.SimpleErrorData{Type: resp.SimpleErrorTypeGeneric, Msg: e.Msg}
	}
}

func malformed(err error, format string, args ...any) *ProtocolError {
	return &ProtocolError{Kind: KindMalformed, Msg: "Protocol error: " + fmt.Sprintf(format, args...), Err: err}
}

func wrongArity(verb string) *ProtocolError {
	return &ProtocolError{Kind: KindWrongArity, Msg: fmt.Sprintf("wrong number of arguments for '%s' command", verb)}
}

func unknownCommand(name string) *ProtocolError {
	return &ProtocolError{Kind: KindUnknownCommand, Msg: fmt.Sprintf("unknown command '%s'", name)}
}
