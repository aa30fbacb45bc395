package redis

import (
	"time"

	"github.com/hnimtadd/craft-redis/internal/redis/command"
	"github.com/hnimtadd/craft-redis/internal/redis/resp"
)

func (c *Controller) MetricsMiddleware(next HandlerFunc) HandlerFunc {
	return func(cmd command.Command, session SessionInfo) resp.Data {
		start := time.Now()
		res := next(cmd, session)
		c.metrics.commands.WithLabelValues(cmd.Name()).Inc()
		c.metrics.commandDuration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())
		return res
	}
}

func (c *Controller) LoggingMiddleware(next HandlerFunc) HandlerFunc {
	return func(cmd command.Command, session SessionInfo) resp.Data {
		res := next(cmd, session)
		c.logger.WithField("session", session.ID).Debugf("%s -> %s", cmd.Name(), resp.Raw(res))
		return res
	}
}
