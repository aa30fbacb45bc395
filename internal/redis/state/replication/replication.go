// Package replication models the server's replication role and drives the
// replica side of the master handshake.
package replication

import (
	"crypto/rand"
	"encoding/hex"
)

type Role string

const (
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

func (r Role) IsMaster() bool {
	return r == RoleMaster
}

// Identity names a replication stream. Offset stays at zero: commands are
// never propagated to replicas.
type Identity struct {
	ID     string
	Offset int64
}

// replIDLength matches the 40 hex characters Redis uses for run ids.
const replIDLength = 40

func NewIdentity() Identity {
	return Identity{ID: newReplID(), Offset: 0}
}

func newReplID() string {
	raw := make([]byte, replIDLength/2)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
