package redis

import (
	"github.com/hnimtadd/craft-redis/internal/redis/state/replication"
)

type ReplicationState struct {
	Role     replication.Role
	Identity replication.Identity
}
