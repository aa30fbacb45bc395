package redis

import (
	"context"
	"net"
	"strconv"

	"github.com/hnimtadd/craft-redis/internal/network"
	"github.com/hnimtadd/craft-redis/internal/redis/state/replication"
)

// Start performs the replica bootstrap when the controller is a slave. It
// must return before clients are accepted; an error is fatal.
func (c *Controller) Start(ctx context.Context) error {
	if c.replicationState.Role != replication.RoleSlave {
		return nil
	}
	return c.connectToMaster(ctx)
}

func (c *Controller) connectToMaster(ctx context.Context) error {
	masterAddr := net.JoinHostPort(c.options.MasterHost, strconv.Itoa(int(c.options.MasterPort)))
	c.logger.Infof("Connecting to MASTER %s", masterAddr)

	conn, err := network.Dial(ctx, masterAddr)
	if err != nil {
		return &replication.HandshakeError{State: replication.StateStart, Err: err}
	}
	// No timeouts on the handshake itself; cancelling ctx unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	handshake := replication.NewHandshake(conn, c.options.SlavePort, c.logger.WithField("master", masterAddr))
	if err := handshake.Run(); err != nil {
		conn.Close()
		return err
	}
	c.logger.Info("Handshake done")

	// The command stream after FULLRESYNC is not consumed; the link is only
	// held open until Close.
	c.masterLink = conn
	return nil
}

// Close releases the master link, if any.
func (c *Controller) Close() error {
	if c.masterLink == nil {
		return nil
	}
	return c.masterLink.Close()
}
