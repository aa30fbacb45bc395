package replication

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hnimtadd/craft-redis/internal/redis/resp"
	"github.com/sirupsen/logrus"
)

type State int

const (
	StateStart State = iota
	StatePingSent
	StatePortAcked
	StateCapaAcked
	StateResyncRequested
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePingSent:
		return "ping-sent"
	case StatePortAcked:
		return "port-acked"
	case StateCapaAcked:
		return "capa-acked"
	case StateResyncRequested:
		return "resync-requested"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Link is the replica's connection to its master.
type Link interface {
	// WriteThenRead sends req and waits for exactly one reply frame.
	WriteThenRead(req resp.Data) (resp.Data, error)
	// ReadInlineBytes reads a "$<len>\r\n<bytes>" payload with no terminator.
	ReadInlineBytes() (resp.InlineBytesData, error)
}

// Handshake is the replica side of the bootstrap exchange:
//
//	PING                          -> +PONG
//	REPLCONF listening-port <p>   -> +OK
//	REPLCONF capa psync2          -> +OK
//	PSYNC ? -1                    -> +FULLRESYNC <id> <offset>, $<len>\r\n<rdb>
//
// The FULLRESYNC line and snapshot are kept but not interpreted, and there is
// no retry: the first failure ends the handshake.
type Handshake struct {
	link          Link
	listeningPort uint16
	logger        logrus.FieldLogger
	state         State

	fullResync string
	snapshot   []byte
}

func NewHandshake(link Link, listeningPort uint16, logger logrus.FieldLogger) *Handshake {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handshake{
		link:          link,
		listeningPort: listeningPort,
		logger:        logger,
		state:         StateStart,
	}
}

func (h *Handshake) State() State {
	return h.state
}

// FullResync is the raw reply line to PSYNC, set once the handshake completes.
func (h *Handshake) FullResync() string {
	return h.fullResync
}

// Snapshot is the payload the master sent after FULLRESYNC.
func (h *Handshake) Snapshot() []byte {
	return h.snapshot
}

func (h *Handshake) Run() error {
	steps := []struct {
		name    string
		request resp.ArraysData
		expect  string
		next    State
	}{
		{name: "PING", request: resp.EncodeRequest("PING"), expect: "pong", next: StatePingSent},
		{
			name:    "1st REPLCONF",
			request: resp.EncodeRequest("REPLCONF", "listening-port", strconv.Itoa(int(h.listeningPort))),
			expect:  "ok",
			next:    StatePortAcked,
		},
		{name: "2nd REPLCONF", request: resp.EncodeRequest("REPLCONF", "capa", "psync2"), expect: "ok", next: StateCapaAcked},
	}
	for _, step := range steps {
		reply, err := h.link.WriteThenRead(step.request)
		if err != nil {
			return h.fail(err)
		}
		h.logger.Debug("received ", resp.Raw(reply))
		text, ok := resp.Text(reply)
		if !ok || !strings.Contains(strings.ToLower(text), step.expect) {
			return h.fail(fmt.Errorf("%w: %s", ErrUnexpectedReply, resp.Raw(reply)))
		}
		h.state = step.next
		h.logger.Infof("Master replied to %s, replication can continue...", step.name)
	}

	reply, err := h.link.WriteThenRead(resp.EncodeRequest("PSYNC", "?", "-1"))
	if err != nil {
		return h.fail(err)
	}
	text, ok := resp.Text(reply)
	if !ok {
		return h.fail(fmt.Errorf("%w: %s", ErrUnexpectedReply, resp.Raw(reply)))
	}
	h.fullResync = text
	h.state = StateResyncRequested
	h.logger.Info("Master replied to PSYNC: ", text)

	snapshot, err := h.link.ReadInlineBytes()
	if err != nil {
		return h.fail(err)
	}
	h.snapshot = snapshot.Content
	h.logger.Infof("Received %d bytes of snapshot from master", len(snapshot.Content))
	return nil
}

func (h *Handshake) fail(err error) error {
	return &HandshakeError{State: h.state, Err: err}
}
