package redis

import (
	"fmt"
	"os"
	"strings"

	"github.com/hnimtadd/craft-redis/internal/network"
	"github.com/hnimtadd/craft-redis/internal/redis/command"
	"github.com/hnimtadd/craft-redis/internal/redis/rdb"
	"github.com/hnimtadd/craft-redis/internal/redis/resp"
	"github.com/hnimtadd/craft-redis/internal/redis/state/replication"
	"github.com/hnimtadd/craft-redis/internal/redis/store"
	"github.com/hnimtadd/craft-redis/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

type Controller struct {
	data    *store.Store
	clock   store.Clock
	logger  *logrus.Logger
	metrics *metrics

	options Options

	// Master/replica replication information
	replicationState *ReplicationState
	// Link to the master once the handshake is done, nil on a master.
	masterLink network.Connection
}

func NewController(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = &logrus.Logger{
			Out:       os.Stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = store.SystemClock{}
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if opts.Role == "" {
		opts.Role = replication.RoleMaster
	}

	data := store.New()
	return &Controller{
		data:    data,
		clock:   clock,
		logger:  log,
		metrics: newMetrics(reg, data),
		options: opts,
		replicationState: &ReplicationState{
			Role:     opts.Role,
			Identity: replication.NewIdentity(),
		},
	}
}

func (c *Controller) ReplicationState() ReplicationState {
	return *c.replicationState
}

type HandlerFunc func(command.Command, SessionInfo) resp.Data

// Handle executes cmd and returns the reply to send back. It never fails:
// command level errors are error replies.
func (c *Controller) Handle(cmd command.Command, session SessionInfo) resp.Data {
	var handler HandlerFunc
	switch cmd := cmd.(type) {
	case command.Ping:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandlePING(cmd) }

	case command.Echo:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandleECHO(cmd) }

	case command.Get:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandleGET(cmd) }

	case command.Set:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandleSET(cmd) }

	case command.Info:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandleINFO(cmd) }

	case command.ReplConf:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandleREPLCONF(cmd) }

	case command.PSync:
		handler = func(command.Command, SessionInfo) resp.Data { return c.HandlePSYNC(cmd) }

	default:
		utils.Assert(false, fmt.Sprintf("no handler for command %T", cmd))
		return nil
	}
	handler = c.LoggingMiddleware(handler)
	handler = c.MetricsMiddleware(handler)
	return handler(cmd, session)
}

func (c *Controller) HandlePING(cmd command.Ping) resp.Data {
	return resp.SimpleStringData{Data: "PONG"}
}

func (c *Controller) HandleECHO(cmd command.Echo) resp.Data {
	return resp.BulkStringData{Data: cmd.Message}
}

func (c *Controller) HandleGET(cmd command.Get) resp.Data {
	value, found := c.data.Get(cmd.Key, c.clock.Now())
	if !found {
		return resp.NullBulkStringData{}
	}
	return resp.BulkStringData{Data: value}
}

// HandleSET handles SET with an optional PX expiry.
// example: redis-cli SET foo bar PX 100
func (c *Controller) HandleSET(cmd command.Set) resp.Data {
	c.data.Set(cmd.Key, cmd.Value, c.clock.Now(), cmd.TTL)
	return resp.SimpleStringData{Data: "OK"}
}

// HandleINFO only knows the replication section.
// example: redis-cli INFO replication
func (c *Controller) HandleINFO(cmd command.Info) resp.Data {
	if !strings.EqualFold(cmd.Section, "replication") {
		return resp.NullBulkStringData{}
	}
	state := c.replicationState
	lines := []string{fmt.Sprintf("role:%s", state.Role)}
	lines = append(lines, lo.Ternary(state.Role.IsMaster(), []string{
		fmt.Sprintf("master_replid:%s", state.Identity.ID),
		fmt.Sprintf("master_repl_offset:%d", state.Identity.Offset),
	}, nil)...)
	return resp.BulkStringData{Data: strings.Join(lines, resp.Terminator)}
}

// HandleREPLCONF acknowledges whatever the replica announces.
func (c *Controller) HandleREPLCONF(cmd command.ReplConf) resp.Data {
	return resp.SimpleStringData{Data: "OK"}
}

// HandlePSYNC answers a full resync request with the empty snapshot.
// example: PSYNC ? -1
func (c *Controller) HandlePSYNC(cmd command.PSync) resp.Data {
	if cmd.ReplicationID != "?" {
		return resp.SimpleErrorData{
			Msg: fmt.Sprintf("unknown option '%s' to PSYNC", cmd.ReplicationID),
		}
	}
	identity := c.replicationState.Identity
	return resp.SequenceData{Datas: []resp.Data{
		resp.SimpleStringData{Data: fmt.Sprintf("FULLRESYNC %s %d", identity.ID, identity.Offset)},
		rdb.EmptyFile.Data(),
	}}
}
