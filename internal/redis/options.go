package redis

import (
	"fmt"
	"strings"

	"github.com/hnimtadd/craft-redis/internal/redis/state/replication"
	"github.com/hnimtadd/craft-redis/internal/redis/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Role replication.Role
	// MasterHost, Port indicates port of master node, incase this instance
	// is a slave.
	MasterHost string
	MasterPort uint16
	// If current node is slave, it is its running port.
	SlavePort uint16

	// RateLimit caps commands per second on each connection, 0 disables it.
	RateLimit int

	Logger     *logrus.Logger
	Registerer prometheus.Registerer
	Clock      store.Clock
}

func (o Options) String() string {
	builder := new(strings.Builder)
	fmt.Fprintf(builder, "Role: %v\n", o.Role)
	fmt.Fprintf(builder, "Master: %v:%v\n", o.MasterHost, o.MasterPort)
	fmt.Fprintf(builder, "Slave Port: %v\n", o.SlavePort)
	fmt.Fprintf(builder, "RateLimit: %v\n", o.RateLimit)
	return builder.String()
}
