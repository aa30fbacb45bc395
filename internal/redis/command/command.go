// Package command turns client request frames into typed commands.
package command

import "time"

// Command is one decoded client request. The set of implementations is
// closed; consumers switch on the concrete type.
type Command interface {
	// Name is the canonical upper-case verb.
	Name() string
	command()
}

type (
	Ping struct{}
	Echo struct {
		Message string
	}
	Get struct {
		Key string
	}
	Set struct {
		Key   string
		Value string
		// TTL is nil when the key never expires.
		TTL *time.Duration
	}
	Info struct {
		Section string
	}
	ReplConf struct {
		Argument string
		Value    string
	}
	PSync struct {
		ReplicationID string
		Offset        string
	}
)

func (Ping) command()     {}
func (Echo) command()     {}
func (Get) command()      {}
func (Set) command()      {}
func (Info) command()     {}
func (ReplConf) command() {}
func (PSync) command()    {}

func (Ping) Name() string     { return "PING" }
func (Echo) Name() string     { return "ECHO" }
func (Get) Name() string      { return "GET" }
func (Set) Name() string      { return "SET" }
func (Info) Name() string     { return "INFO" }
func (ReplConf) Name() string { return "REPLCONF" }
func (PSync) Name() string    { return "PSYNC" }
