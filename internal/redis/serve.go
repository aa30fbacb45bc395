package redis

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/hnimtadd/craft-redis/internal/redis/command"
	"github.com/hnimtadd/craft-redis/internal/redis/resp"
	"github.com/hnimtadd/craft-redis/utils"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// readBufferSize bounds a single request: each read is decoded as exactly
// one command.
const readBufferSize = 1024

type SessionInfo struct {
	ID         string
	RemoteAddr string
}

// Serve runs the read, decode, execute, write cycle for one client until the
// peer closes, a request fails to decode, or ctx is done.
func (c *Controller) Serve(ctx context.Context, conn net.Conn) {
	utils.Assert(conn != nil, "serve needs a connection")
	info := SessionInfo{
		ID:         ulid.Make().String(),
		RemoteAddr: conn.RemoteAddr().String(),
	}
	logger := c.logger.WithFields(logrus.Fields{
		"session": info.ID,
		"remote":  info.RemoteAddr,
	})

	logger.Debug("receive connection")
	c.metrics.connectionsTotal.Inc()
	c.metrics.connections.Inc()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		logger.Debug("cleaning connection")
		stop()
		conn.Close()
		c.metrics.connections.Dec()
	}()

	var limiter *rate.Limiter
	if c.options.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.options.RateLimit), c.options.RateLimit)
	}

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.WithError(err).Error("failed to read from conn")
			}
			return
		}
		if n == 0 {
			return
		}
		data := buf[:n]
		logger.Debugf("receive %q", data)

		cmd, err := command.Decode(data)
		if err != nil {
			var protocolErr *command.ProtocolError
			if !errors.As(err, &protocolErr) {
				protocolErr = &command.ProtocolError{Kind: command.KindMalformed, Msg: err.Error(), Err: err}
			}
			c.metrics.protocolErrors.WithLabelValues(protocolErr.Kind.String()).Inc()
			logger.WithError(err).Info("closing connection after protocol error")
			c.write(logger, conn, protocolErr.Reply())
			return
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		res := c.Handle(cmd, info)
		if !c.write(logger, conn, res) {
			return
		}
	}
}

func (c *Controller) write(logger logrus.FieldLogger, conn net.Conn, res resp.Data) bool {
	if _, err := conn.Write(resp.Encode(res)); err != nil {
		logger.WithError(err).Error("failed to write to conn")
		return false
	}
	return true
}
